package main

import (
	"github.com/aretw0/procmeta/internal/presentation/tui"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the process type tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		// First visit: preselect the first leaf like the console does.
		s.AutoSelect(cmd.Context())
		expand := s.Expanded()
		collapse, _ := cmd.Flags().GetStringSlice("collapse")
		for _, code := range collapse {
			if t, err := s.Type(code); err == nil {
				expand.Collapse(t.ID)
			}
		}

		tui.RenderTree(cmd.OutOrStdout(), termenv.EnvColorProfile(), tui.TreeView{
			Forest:   s.Forest(),
			Expand:   expand,
			Selected: s.Selection().TypeCode,
		})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().StringSlice("collapse", nil, "Type codes to show collapsed")
}
