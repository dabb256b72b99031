package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"coverfill/internal/normalize"
)

func newNormalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "normalize <name>...",
		Short:       "Print the search query each name is looked up with",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range args {
				fmt.Fprintln(out, normalize.Name(name))
			}
			return nil
		},
	}
}
