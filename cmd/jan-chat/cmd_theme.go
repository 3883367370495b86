package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newThemeCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|system]",
		Short:     "Show or set the theme preference",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{ThemeLight, ThemeDark, ThemeSystem},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), s.state.Theme)
				return nil
			}
			s.state.Theme = args[0]
			if err := s.state.save(s.statePath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Theme set to %s\n", args[0])
			return nil
		},
	}
}
