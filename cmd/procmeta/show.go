package main

import (
	"fmt"
	"os"

	"github.com/aretw0/procmeta/internal/presentation/tui"
	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [type]",
	Short: "Describe a type with its states and operations",
	Long:  `Shows a type as markdown. Without an argument the last selected type is shown.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		code := s.Selection().TypeCode
		if len(args) == 1 {
			code = args[0]
		}
		if code == "" {
			return fmt.Errorf("no type given and none selected")
		}

		t, err := s.Type(code)
		if err != nil {
			return err
		}
		s.SelectType(ctx, code)
		// Panel errors are reported inline instead of failing the command.
		_ = s.LoadType(ctx, code)

		md := tui.TypeMarkdown(t, s.StatesOf(code), s.OperationsOf(code))
		for _, kind := range []domain.Kind{domain.KindState, domain.KindOperation} {
			if perr := s.PanelError(kind); perr != nil {
				md += fmt.Sprintf("\n> %s unavailable: %v\n", kind, perr)
			}
		}

		raw, _ := cmd.Flags().GetBool("raw")
		if raw {
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		}
		render, err := tui.NewRenderer(s.Theme(), tui.IsTerminal(os.Stdout))
		if err != nil {
			return err
		}
		out, err := render(md)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().Bool("raw", false, "Print markdown without rendering")
}
