package cli

import (
	"context"

	"tension-cli/internal/store"

	"github.com/spf13/cobra"
)

func newInitCmd(app *App) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the workspace database and a first chart",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			st := store.Store{Dir: dir}
			existed := st.Exists()

			ctx := context.Background()
			db, err := st.Open(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer db.Close()

			c, err := db.Init(ctx, title)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{
				Data: map[string]any{
					"dir":        dir,
					"sqlitePath": st.Path(),
					"chart":      c,
					"created":    !existed,
				},
				Hints: []string{
					"tension areas add <name>",
					"tension add vision <title>",
				},
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "Main", "Title of the first chart")
	return cmd
}
