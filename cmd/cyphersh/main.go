// Command cyphersh is a REPL and batch-script runner over the graphdb
// engine. Four subcommands (run, repl, dump, load) share backend
// selection flags resolved against GRAPHDB_* environment defaults.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	graphdb "github.com/adaworld/graphdb"
	"github.com/adaworld/graphdb/internal/config"
	"github.com/adaworld/graphdb/internal/storage"
	"github.com/adaworld/graphdb/internal/storage/memory"
	"github.com/adaworld/graphdb/internal/storage/sqlstore"
	"github.com/adaworld/graphdb/models"
)

var (
	envFile    string
	backendOpt string
	dsnOpt     string
	jsonOutput bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cyphersh",
		Short:         "Embeddable Cypher graph engine shell",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("loading env file: %w", err)
				}
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", "", "optional .env file to load before reading GRAPHDB_* variables")
	root.PersistentFlags().StringVar(&backendOpt, "backend", "", "storage backend: memory (default) or sql")
	root.PersistentFlags().StringVar(&dsnOpt, "dsn", "", "DSN for the sql backend (sqlite file path or postgres:// URL)")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")

	root.AddCommand(newRunCmd())
	root.AddCommand(newReplCmd())
	root.AddCommand(newDumpCmd())
	root.AddCommand(newLoadCmd())
	return root
}

// openBackend resolves the effective backend, flags taking precedence
// over environment defaults (internal/config.LoadConfig).
func openBackend() (storage.Backend, func(), error) {
	cfg := config.LoadConfig()
	backend := backendOpt
	if backend == "" {
		backend = cfg.Backend
	}
	dsn := dsnOpt
	if dsn == "" {
		dsn = cfg.SQLDSN
	}

	switch backend {
	case "", "memory":
		return memory.New(), func() {}, nil
	case "sql":
		if dsn == "" {
			return nil, nil, fmt.Errorf("sql backend requires -dsn or GRAPHDB_SQL_DSN")
		}
		b, err := sqlstore.Connect(dsn, false)
		if err != nil {
			return nil, nil, err
		}
		return b, func() { _ = b.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func printResult(res *graphdb.QueryResult) {
	if len(res.Columns) == 0 {
		fmt.Printf("(%d nodes created, %d relationships created, %d properties set)\n",
			res.Stats.NodesCreated, res.Stats.RelationshipsCreated, res.Stats.PropertiesSet)
		return
	}
	for _, row := range res.Rows {
		parts := make([]string, 0, len(res.Columns))
		for _, col := range res.Columns {
			parts = append(parts, col+"="+row[col].String())
		}
		for i, p := range parts {
			if i > 0 {
				fmt.Print(", ")
			}
			fmt.Print(p)
		}
		fmt.Println()
	}
}

func runStatement(ctx context.Context, g *graphdb.Graph, text string) (*graphdb.QueryResult, error) {
	return g.Execute(ctx, text, models.PropertyMap{})
}
