package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/nomis52/taskboard/clients/engineclient"
)

// AddIdentityCommands adds users and groups.
func AddIdentityCommands(rootCmd *cobra.Command, flags *globalFlags) {
	var group string
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "List users, optionally only members of one group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.load()
			if err != nil {
				return err
			}
			var users []engineclient.User
			if group != "" {
				users, err = e.engine.UsersInGroup(cmd.Context(), group)
			} else {
				users, err = e.engine.Users(cmd.Context())
			}
			if err != nil {
				return err
			}
			if flags.json {
				return printJSON(cmd.OutOrStdout(), users)
			}
			t := newTable(cmd.OutOrStdout(), "ID", "NAME", "EMAIL", "GROUPS")
			for _, u := range users {
				name := strings.TrimSpace(u.FirstName + " " + u.LastName)
				t.row(u.ID, orDash(name), orDash(u.Email), orDash(strings.Join(u.Groups, ",")))
			}
			return t.flush()
		},
	}
	usersCmd.Flags().StringVar(&group, "group", "", "Only members of this group")

	groupsCmd := &cobra.Command{
		Use:   "groups",
		Short: "List candidate groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.load()
			if err != nil {
				return err
			}
			groups, err := e.engine.Groups(cmd.Context())
			if err != nil {
				return err
			}
			if flags.json {
				return printJSON(cmd.OutOrStdout(), groups)
			}
			t := newTable(cmd.OutOrStdout(), "ID", "NAME", "MEMBERS")
			for _, g := range groups {
				t.row(g.ID, orDash(g.Name), orDash(strings.Join(g.UserIDs, ",")))
			}
			return t.flush()
		},
	}

	rootCmd.AddCommand(usersCmd, groupsCmd)
}
