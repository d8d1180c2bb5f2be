package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/boncukgram/boncuk/pkg/settings"
)

func newSettingsCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change local settings",
		Long: `Show or change the settings shared with the gateway: language, display
name and the unlock flag. The backend is chosen by BONCUK_SETTINGS_BACKEND.`,
		Example: `  boncuk settings
  boncuk settings set language en
  boncuk settings set name "Maviş'in sahibi"
  boncuk settings unlock`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(cmd.Context(), a, func(s *settings.Settings) error {
				return printSettings(cmd.Context(), s, output, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (json or text)")
	cmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "text"}, cobra.ShellCompDirectiveNoFileComp
	})

	cmd.AddCommand(
		&cobra.Command{
			Use:       "set <language|name> <value>",
			Short:     "Change a setting",
			Args:      cobra.ExactArgs(2),
			ValidArgs: []string{"language", "name"},
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSettings(cmd.Context(), a, func(s *settings.Settings) error {
					if err := setSetting(cmd.Context(), s, args[0], args[1]); err != nil {
						return err
					}
					return printSettings(cmd.Context(), s, "text", cmd.OutOrStdout())
				})
			},
		},
		&cobra.Command{
			Use:   "unlock",
			Short: "Unlock the premium features",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSettings(cmd.Context(), a, func(s *settings.Settings) error {
					if err := s.Unlock(cmd.Context()); err != nil {
						return err
					}
					statusActive.Fprintln(cmd.OutOrStdout(), "kilit açıldı")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "lock",
			Short: "Lock the premium features again",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSettings(cmd.Context(), a, func(s *settings.Settings) error {
					if err := s.Lock(cmd.Context()); err != nil {
						return err
					}
					faint.Fprintln(cmd.OutOrStdout(), "kilitlendi")
					return nil
				})
			},
		},
	)
	return cmd
}

func withSettings(ctx context.Context, a *app, fn func(*settings.Settings) error) error {
	s, closeStore, err := a.settings(ctx)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(s)
}

func setSetting(ctx context.Context, s *settings.Settings, key, value string) error {
	switch key {
	case "language", "lang":
		return s.SetLanguage(ctx, value)
	case "name", "user_name":
		return s.SetUserName(ctx, value)
	default:
		return fmt.Errorf("unknown setting %q (want language or name)", key)
	}
}

func printSettings(ctx context.Context, s *settings.Settings, format string, out io.Writer) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case "text", "":
		fmt.Fprintf(out, "language:  %s\n", snap.Language)
		fmt.Fprintf(out, "name:      %s\n", snap.UserName)
		fmt.Fprintf(out, "unlocked:  %t\n", snap.Unlocked)
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (want json or text)", format)
	}
}
