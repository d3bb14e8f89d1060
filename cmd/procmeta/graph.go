package main

import (
	"fmt"

	"github.com/aretw0/procmeta/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [type]",
	Short: "Export the state diagram of a type",
	Long:  `Outputs a Mermaid diagram (graph TD) of a type's states and operations. The current selection is highlighted.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		sel := s.Selection()
		code := sel.TypeCode
		if len(args) == 1 {
			code = args[0]
		}
		if code == "" {
			return fmt.Errorf("no type given and none selected")
		}
		if _, err := s.Type(code); err != nil {
			return err
		}
		if err := s.LoadType(ctx, code); err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if code == sel.TypeCode {
			overlay = &graph.GraphOverlay{
				SelectedStateID:     sel.StateID,
				SelectedOperationID: sel.OperationID,
			}
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(s.StatesOf(code), s.OperationsOf(code), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
