package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nomis52/taskboard/clients/engineclient"
	"github.com/nomis52/taskboard/dashboard"
	"github.com/nomis52/taskboard/lifecycle"
	"github.com/nomis52/taskboard/taskvars"
)

// AddTaskCommands adds tasks, claim, unclaim and complete.
func AddTaskCommands(rootCmd *cobra.Command, flags *globalFlags) {
	var filter engineclient.TaskFilter
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "List open tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.load()
			if err != nil {
				return err
			}
			tasks, err := e.engine.ListTasks(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if flags.json {
				return printJSON(cmd.OutOrStdout(), tasks)
			}
			t := newTable(cmd.OutOrStdout(), "ID", "NAME", "TYPE", "ASSIGNEE", "STATE", "INSTANCE")
			for _, task := range tasks {
				t.row(task.ID, task.Name, task.TaskDefinitionKey, orDash(task.Assignee),
					lifecycle.TaskStateFromAssignee(task.Assignee).String(), task.ProcessInstanceID)
			}
			return t.flush()
		},
	}
	tasksCmd.Flags().StringVar(&filter.Assignee, "assignee", "", "Only tasks assigned to this user")
	tasksCmd.Flags().StringVar(&filter.CandidateGroup, "group", "", "Only tasks offered to this candidate group")
	tasksCmd.Flags().StringVar(&filter.ProcessInstanceID, "instance", "", "Only tasks of this process instance")

	var userID string
	claimCmd := &cobra.Command{
		Use:   "claim TASK_ID",
		Short: "Claim a task for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, actions, err := observed(cmd.Context(), flags, args[0])
			if err != nil {
				return err
			}
			if err := actions.Claim(cmd.Context(), args[0], userID); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "task %s claimed by %s\n", args[0], userID)
			return err
		},
	}
	claimCmd.Flags().StringVarP(&userID, "user", "u", "", "User to assign the task to")
	_ = claimCmd.MarkFlagRequired("user")

	unclaimCmd := &cobra.Command{
		Use:   "unclaim TASK_ID",
		Short: "Return a claimed task to its candidate group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, actions, err := observed(cmd.Context(), flags, args[0])
			if err != nil {
				return err
			}
			if err := actions.Unclaim(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "task %s unclaimed\n", args[0])
			return err
		},
	}

	var rawVars []string
	completeCmd := &cobra.Command{
		Use:   "complete TASK_ID",
		Short: "Complete a claimed task",
		Long: `Complete a claimed task. Form fields are passed as --var name=value and
turned into completion variables by the rules for the task's type.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parseVars(rawVars)
			if err != nil {
				return err
			}
			task, actions, err := observed(cmd.Context(), flags, args[0])
			if err != nil {
				return err
			}
			vars, err := actions.Complete(cmd.Context(), task.ID, task.TaskDefinitionKey, raw)
			if err != nil {
				return err
			}
			if flags.json {
				return printJSON(cmd.OutOrStdout(), vars)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "task %s completed\n", task.ID)
			return err
		},
	}
	completeCmd.Flags().StringArrayVar(&rawVars, "var", nil, "Form field as name=value, repeatable")

	rootCmd.AddCommand(tasksCmd, claimCmd, unclaimCmd, completeCmd)
}

// observed fetches a task and returns Actions tracking its current state, so
// the same transition rules as the dashboard apply.
func observed(ctx context.Context, flags *globalFlags, taskID string) (engineclient.Task, *dashboard.Actions, error) {
	e, err := flags.load()
	if err != nil {
		return engineclient.Task{}, nil, err
	}
	task, err := e.engine.Task(ctx, taskID)
	if err != nil {
		return engineclient.Task{}, nil, err
	}
	actions := dashboard.NewActions(e.engine, taskvars.NewBuilder(e.cfg.TaskTable()),
		dashboard.WithActionsLogger(e.logger),
	)
	actions.Observe(task)
	return task, actions, nil
}

// parseVars turns name=value pairs into raw form input.
func parseVars(pairs []string) (map[string]any, error) {
	raw := make(map[string]any, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q, want name=value", p)
		}
		raw[name] = value
	}
	return raw, nil
}
