package main

import (
	"fmt"

	"github.com/aretw0/procmeta/pkg/client"
	"github.com/aretw0/procmeta/pkg/console"
	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/spf13/cobra"
)

var themeCmd = &cobra.Command{
	Use:       "theme [light|dark|toggle]",
	Short:     "Show or change the colour theme",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"light", "dark", "toggle"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		prefs, err := openPreferences(cfg.Preferences)
		if err != nil {
			return err
		}
		// The theme needs no backend round trip.
		s := console.New(client.New(cfg.Client.URL), console.WithPreferences(prefs), console.WithLogger(logger))
		theme := s.LoadTheme(ctx)

		if len(args) == 1 {
			switch args[0] {
			case "toggle":
				theme, err = s.ToggleTheme(ctx)
			case string(domain.ThemeLight), string(domain.ThemeDark):
				theme, err = s.SetTheme(ctx, domain.Theme(args[0]))
			default:
				return fmt.Errorf("unknown theme %q", args[0])
			}
			if err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), theme)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(themeCmd)
}
