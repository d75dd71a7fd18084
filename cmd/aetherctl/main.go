// Command aetherctl is a small operator CLI for local debugging: it
// inspects the plugin registry and looks up job records directly
// against the store, without going through the HTTP API. It is
// additive tooling, not a required interface — the engine is driven by
// the API/worker pair (cmd/api, cmd/worker).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aetherframe/orchestrator/internal/config"
	"github.com/aetherframe/orchestrator/internal/db"
	"github.com/aetherframe/orchestrator/internal/plugins"

	_ "github.com/aetherframe/orchestrator/internal/plugins/builtin/diff"
	_ "github.com/aetherframe/orchestrator/internal/plugins/builtin/gate"
	_ "github.com/aetherframe/orchestrator/internal/plugins/builtin/intent"
	_ "github.com/aetherframe/orchestrator/internal/plugins/builtin/reconstruct"
	_ "github.com/aetherframe/orchestrator/internal/plugins/builtin/report"
	_ "github.com/aetherframe/orchestrator/internal/plugins/builtin/static"
	_ "github.com/aetherframe/orchestrator/internal/plugins/builtin/trace"
)

// cliState holds the shared runtime state built by the root command's
// PersistentPreRunE and torn down by its PersistentPostRun.
type cliState struct {
	cfg      config.Config
	database *db.Database
	registry *plugins.Registry
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	state := &cliState{}

	root := &cobra.Command{
		Use:   "aetherctl",
		Short: "Operator CLI for the aetherframe orchestration engine",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			state.cfg = config.Load()

			discovery := plugins.NewDiscovery(state.cfg.PluginsDir)
			if err := discovery.Scan(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: plugin discovery: %v\n", err)
			}
			state.registry = plugins.NewRegistry(discovery)

			// jobs show is the only subcommand that needs a database
			// connection; skip it for plugin inspection so aetherctl
			// plugins list works without Postgres reachable.
			if cmd.Name() != "show" {
				return nil
			}

			database, err := db.NewDatabase(db.Config{
				Host:     state.cfg.DBHost,
				Port:     fmt.Sprintf("%d", state.cfg.DBPort),
				User:     state.cfg.DBUser,
				Password: state.cfg.DBPassword,
				DBName:   state.cfg.DBName,
				SSLMode:  state.cfg.DBSSLMode,
			})
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			state.database = database
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if state.database != nil {
				state.database.Close()
			}
		},
	}

	root.AddCommand(newPluginsCmd(state))
	root.AddCommand(newJobsCmd(state))
	return root
}
