package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"tension-cli/internal/config"
	"tension-cli/internal/format"
	"tension-cli/internal/store"

	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	Chart      string
	PrettyJSON bool
	Format     string
	LogLevel   string

	// FailPersist makes the selected store operations fail ("all" or a comma
	// list such as "setOrder,moveItem"). Used to try the revert paths by hand.
	FailPersist string

	cfg *config.Config
	log *slog.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "tension",
		Short:        "Structural tension charts: visions, realities, tensions and actions",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive board
  tension

  # Scriptable commands
  tension add vision "Paint every day" --area Art
  tension drag act-k2m4q7xa --onto ten-3hw8c1vd
  tension board --format table

  # Direct item lookup (shortcut for: tension show <id>)
  tension vis-7fj2k9qa
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive board.
			if len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return writeErr(cmd, err)
		}
		app.cfg = cfg
		level := app.LogLevel
		if level == "" {
			level = cfg.LogLevel
		}
		log, err := config.NewLogger(cmd.ErrOrStderr(), level)
		if err != nil {
			return writeErr(cmd, err)
		}
		app.log = log
		switch app.Format {
		case "json", "edn", "table":
		default:
			return writeErr(cmd, fmt.Errorf("unknown format: %s (expected json|edn|table)", app.Format))
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("TENSION_DIR", ""), "Path to the workspace dir holding tension.sqlite (default: config workspace, else nearest .tension)")
	cmd.PersistentFlags().StringVar(&app.Chart, "chart", envOr("TENSION_CHART", ""), "Chart id (default: config chart, else the workspace's current chart)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON/EDN output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("TENSION_FORMAT", "json"), "Output format (json|edn|table)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level on stderr (debug|info|warn|error|off)")
	cmd.PersistentFlags().StringVar(&app.FailPersist, "fail-persist", "", "Dev: fail store operations (all|setOrder,moveItem,deleteItem,createItem,updateItem)")
	_ = cmd.PersistentFlags().MarkHidden("fail-persist")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newChartsCmd(app))
	cmd.AddCommand(newAreasCmd(app))
	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newDragCmd(app))
	cmd.AddCommand(newDeleteCmd(app))
	cmd.AddCommand(newBoardCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newRenderCmd(app))
	cmd.AddCommand(newDoctorCmd(app))
	cmd.AddCommand(newReindexCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newTUICmd(app))

	return cmd
}

// resolveDir picks the workspace dir: --dir, then the configured workspace,
// then the nearest .tension directory (or ./.tension).
func resolveDir(app *App) (string, error) {
	if app.Dir != "" {
		return app.Dir, nil
	}
	if app.cfg != nil && app.cfg.Workspace != "" {
		app.Dir = app.cfg.Workspace
		return app.Dir, nil
	}
	d, err := store.DefaultDir()
	if err != nil {
		return "", err
	}
	app.Dir = d
	return d, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// envelope is the shape of every command's output.
type envelope struct {
	Data  any      `json:"data"`
	Meta  any      `json:"meta,omitempty"`
	Hints []string `json:"_hints,omitempty"`
}

func writeOut(cmd *cobra.Command, app *App, v envelope) error {
	if app.Format == "table" {
		if t, ok := v.Data.(format.Tabular); ok {
			return format.WriteTable(cmd.OutOrStdout(), t)
		}
	}
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
