package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/procmeta/internal/plan"
	"github.com/aretw0/procmeta/pkg/console"
	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply <plan.yaml>",
	Short: "Stage a YAML plan of edits and save it",
	Long: `Reads a plan of types, states, operations and deletions, stages it in a
console session, validates it and saves it to the backend.
Nothing is sent when validation fails. With --dry-run the staged changes are
printed and discarded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		p, err := plan.Decode(f)
		if err != nil {
			return err
		}

		if mode, _ := cmd.Flags().GetString("save-mode"); mode != "" {
			cfg.Client.SaveMode = mode
		}
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		res, err := plan.Apply(ctx, s, p)
		if err != nil {
			return fmt.Errorf("stage plan: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "staged: %s\n", res)
		if err := s.Validate(); err != nil {
			problems := domain.ValidationErrors(err)
			if problems == nil {
				problems = []error{err}
			}
			for _, v := range problems {
				fmt.Fprintf(out, "  invalid: %v\n", v)
			}
			return errors.New("plan is not valid; nothing was saved")
		}

		if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
			pending := s.Pending()
			data, err := json.MarshalIndent(map[string]any{
				"types":      pending.Types,
				"states":     pending.States,
				"operations": pending.Operations,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			s.Reset()
			return nil
		}
		if err := s.Save(ctx); err != nil {
			return fmt.Errorf("save: %w", err)
		}
		fmt.Fprintf(out, "saved (%s)\n", console.ParseSaveMode(cfg.Client.SaveMode))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().Bool("dry-run", false, "Validate and print the staged changes without saving")
	applyCmd.Flags().String("save-mode", "", "sequential or batch (default from config)")
}
