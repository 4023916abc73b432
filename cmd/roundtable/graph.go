package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/roundtable/graph"
)

func newGraphCmd(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the conference graph",
		Long:  `Builds the conference and prints its routing graph as a Mermaid or PlantUML diagram.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, conf, err := root.build()
			if err != nil {
				return err
			}
			g, _ := conf.Graph()

			switch format {
			case "mermaid":
				fmt.Fprint(cmd.OutOrStdout(), graph.Mermaid(g))
			case "plantuml":
				fmt.Fprintln(cmd.OutOrStdout(), graph.PlantUML(g))
			default:
				return fmt.Errorf("unknown format %q (want mermaid or plantuml)", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "mermaid", "Diagram format: mermaid or plantuml")
	return cmd
}
