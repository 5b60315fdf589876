package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	graphdb "github.com/adaworld/graphdb"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <statement>",
		Short: "Execute a single Cypher statement against the configured backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, closeFn, err := openBackend()
			if err != nil {
				return err
			}
			defer closeFn()

			g := graphdb.New(backend)
			res, err := runStatement(context.Background(), g, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				b, _ := json.MarshalIndent(res, "", "  ")
				fmt.Println(string(b))
				return nil
			}
			printResult(res)
			return nil
		},
	}
}
