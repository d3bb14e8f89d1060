package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var selectCmd = &cobra.Command{
	Use:   "select [type]",
	Short: "Remember a type, state or operation as the current selection",
	Long: `Selects a type and optionally one of its states or operations by code.
The selection is kept in the preference store and used by show and graph.
Without arguments the selection is cleared.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			s.ClearSelection(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "selection cleared")
			return nil
		}

		code := args[0]
		if _, err := s.Type(code); err != nil {
			return err
		}
		s.SelectType(ctx, code)

		stateCode, _ := cmd.Flags().GetString("state")
		opCode, _ := cmd.Flags().GetString("operation")
		if stateCode != "" && opCode != "" {
			return fmt.Errorf("--state and --operation are exclusive")
		}
		if stateCode != "" || opCode != "" {
			if err := s.LoadType(ctx, code); err != nil {
				return err
			}
		}
		if stateCode != "" {
			for _, st := range s.StatesOf(code) {
				if st.Code == stateCode {
					s.SelectState(ctx, st.ID)
					fmt.Fprintf(cmd.OutOrStdout(), "selected %s / state %s\n", code, stateCode)
					return nil
				}
			}
			return fmt.Errorf("state %q not found in %q", stateCode, code)
		}
		if opCode != "" {
			for _, o := range s.OperationsOf(code) {
				if o.Code == opCode {
					s.SelectOperation(ctx, o.ID)
					fmt.Fprintf(cmd.OutOrStdout(), "selected %s / operation %s\n", code, opCode)
					return nil
				}
			}
			return fmt.Errorf("operation %q not found in %q", opCode, code)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "selected %s\n", code)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(selectCmd)
	selectCmd.Flags().String("state", "", "State code to select")
	selectCmd.Flags().String("operation", "", "Operation code to select")
}
