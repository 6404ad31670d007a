package main

import (
	"os"
	"strings"

	"tension-cli/internal/cli"
	"tension-cli/internal/model"
)

var idTables = []model.Table{
	model.TableVisions,
	model.TableRealities,
	model.TableTensions,
	model.TableActions,
	model.TableAreas,
}

func isEntityID(s string) bool {
	s = strings.TrimSpace(s)
	for _, t := range idTables {
		p := t.IDPrefix() + "-"
		if strings.HasPrefix(s, p) && len(s) > len(p) {
			return true
		}
	}
	return false
}

// Persistent flags that take a separate value.
var valueFlags = map[string]bool{
	"--dir":          true,
	"--chart":        true,
	"--format":       true,
	"--log-level":    true,
	"--fail-persist": true,
}

// rewriteDirectLookupArgs turns `tension [flags] <id>` into
// `tension [flags] show <id>`. Cobra takes the first positional token as a
// subcommand, so argv is rewritten before parsing.
func rewriteDirectLookupArgs(argv []string) []string {
	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		switch {
		case a == "":
			continue
		case a == "--":
			if i+1 < len(argv) && isEntityID(argv[i+1]) {
				return insertShow(argv, i)
			}
			return argv
		case strings.HasPrefix(a, "-"):
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}
		if isEntityID(a) {
			return insertShow(argv, i)
		}
		return argv
	}
	return argv
}

func insertShow(argv []string, at int) []string {
	out := make([]string, 0, len(argv)+1)
	out = append(out, argv[:at]...)
	out = append(out, "show")
	return append(out, argv[at:]...)
}

func main() {
	os.Args = rewriteDirectLookupArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
