package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/adaworld/graphdb/internal/export"
)

func newDumpCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Export the configured backend's graph as a reloadable Cypher script",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, closeFn, err := openBackend()
			if err != nil {
				return err
			}
			defer closeFn()

			w := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				return export.Dump(context.Background(), backend, f)
			}
			return export.Dump(context.Background(), backend, w)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the dump to this file instead of stdout")
	return cmd
}
