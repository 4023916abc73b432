package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the conference file",
		Long: `Parses the conference file and builds the conference without running it.
Reports every configuration error found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, conf, err := root.build()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "conference %q is valid\n", cfg.Name)
			for _, a := range conf.Agents() {
				entry := ""
				if a.Entry {
					entry = " (entry)"
				}
				tools := "none"
				if len(a.Tools) > 0 {
					tools = strings.Join(a.Tools, ", ")
				}
				fmt.Fprintf(out, "  %s%s -> %s  model=%s/%s  tools=%s\n", a.Name, entry, a.Next, a.Model.Provider, a.Model.Name, tools)
			}
			return nil
		},
	}
}
