package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nomis52/taskboard/buildinfo"
)

// AddVersionCommand adds the version command.
func AddVersionCommand(rootCmd *cobra.Command) {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "taskctl %s\n", buildinfo.Get())
			return err
		},
	})
}
