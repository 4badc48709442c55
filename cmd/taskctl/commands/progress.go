package commands

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nomis52/taskboard/dashboard"
	"github.com/nomis52/taskboard/lifecycle"
	"github.com/nomis52/taskboard/logging"
	"github.com/nomis52/taskboard/metrics"
)

// AddProgressCommand adds the progress command.
func AddProgressCommand(rootCmd *cobra.Command, flags *globalFlags) {
	var (
		definitionKey string
		push          bool
	)

	progressCmd := &cobra.Command{
		Use:   "progress [INSTANCE_ID...]",
		Short: "Show the progress of process instances",
		Long: `Show the progress of the given process instances, or of every active
instance when none are given. With --push the progress gauges are sent to
the configured VictoriaMetrics remote write endpoint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.load()
			if err != nil {
				return err
			}
			if push && e.cfg.Monitoring.VictoriaMetricsURL == "" {
				return errors.New("--push needs monitoring.victoriametrics_url in the config")
			}

			registry, err := e.cfg.Registry()
			if err != nil {
				return err
			}

			var pushRegistry *metrics.PushRegistry
			opts := []dashboard.Option{
				dashboard.WithLogger(e.logger),
				dashboard.WithMaxConcurrentFetches(e.cfg.Dashboard.MaxConcurrentFetches),
				dashboard.WithFetchTimeout(e.cfg.Dashboard.FetchTimeout),
			}
			if push {
				hostname, err := os.Hostname()
				if err != nil {
					return fmt.Errorf("failed to get hostname: %w", err)
				}
				pushRegistry = metrics.NewPushRegistry(metrics.PushConfig{
					URL:      e.cfg.Monitoring.VictoriaMetricsURL,
					Prefix:   e.cfg.Monitoring.MetricsPrefix,
					Job:      e.cfg.Monitoring.JobName,
					Instance: hostname,
				})
				m, err := metrics.NewDashboardMetrics(pushRegistry)
				if err != nil {
					return err
				}
				opts = append(opts, dashboard.WithMetrics(m))
			}

			var refs []dashboard.InstanceRef
			failed := map[string]dashboard.InstanceProgress{}
			if len(args) == 0 {
				instances, err := e.engine.ListProcessInstances(cmd.Context(), definitionKey)
				if err != nil {
					return err
				}
				for _, inst := range instances {
					refs = append(refs, dashboard.RefFor(inst.ID, inst.ProcessDefinitionID))
				}
			} else {
				for _, id := range args {
					inst, err := e.engine.ProcessInstance(cmd.Context(), id)
					if err != nil {
						e.logger.Warn("failed to look up process instance", logging.KeyInstanceID, id, logging.KeyError, err)
						failed[id] = dashboard.InstanceProgress{
							InstanceID: id,
							State:      lifecycle.InstanceUnknown,
							Err:        fmt.Errorf("%w: %w", dashboard.ErrSnapshotUnavailable, err),
						}
						continue
					}
					refs = append(refs, dashboard.RefFor(inst.ID, inst.ProcessDefinitionID))
				}
			}

			board := dashboard.NewBoard(e.engine, registry, opts...)
			results := board.Progress(cmd.Context(), refs)
			maps.Copy(results, failed)

			if pushRegistry != nil {
				if err := pushRegistry.Flush(cmd.Context()); err != nil {
					return fmt.Errorf("pushing metrics: %w", err)
				}
			}

			if flags.json {
				return printJSON(cmd.OutOrStdout(), results)
			}
			return printProgress(cmd, results)
		},
	}
	progressCmd.Flags().StringVar(&definitionKey, "key", "", "Only instances of this process definition key")
	progressCmd.Flags().BoolVar(&push, "push", false, "Push progress gauges to VictoriaMetrics")

	rootCmd.AddCommand(progressCmd)
}

func printProgress(cmd *cobra.Command, results map[string]dashboard.InstanceProgress) error {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	t := newTable(cmd.OutOrStdout(), "INSTANCE", "KIND", "STATE", "PERCENT", "CURRENT STEP")
	for _, id := range ids {
		p := results[id]
		percent, step := "-", "-"
		if p.Progress != nil {
			percent = strconv.Itoa(p.Progress.Percentage) + "%"
			if p.Progress.CurrentStep != nil {
				step = p.Progress.CurrentStep.Name
				if step == "" {
					step = p.Progress.CurrentStep.ID
				}
			}
		}
		if p.Err != nil {
			step = p.Err.Error()
		}
		t.row(id, p.ProcessKind, p.State.String(), percent, step)
	}
	return t.flush()
}
