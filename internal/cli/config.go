package cli

import (
	"tension-cli/internal/config"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings in ~/.tension/config.json",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show effective settings (file + TENSION_* environment)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ConfigPath()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: app.cfg, Meta: map[string]any{"path": path, "keys": config.Keys()}})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Set(app.cfg, args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			if err := config.Save(app.cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: app.cfg})
		},
	})
	return cmd
}
