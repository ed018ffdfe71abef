package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry of the configured namespace from the shared tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, cleanup, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.ClearCaches(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared namespace %q.\n", svc.Namespace())
			return nil
		},
	}
}
