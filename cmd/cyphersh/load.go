package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	graphdb "github.com/adaworld/graphdb"
)

func newLoadCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "load <glob>",
		Short: "Replay every statement in the .cypher script files matching glob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := doublestar.FilepathGlob(args[0])
			if err != nil {
				return fmt.Errorf("expanding glob %q: %w", args[0], err)
			}
			if len(files) == 0 {
				return fmt.Errorf("no files matched %q", args[0])
			}

			backend, closeFn, err := openBackend()
			if err != nil {
				return err
			}
			defer closeFn()

			g := graphdb.New(backend)
			return loadFiles(g, files, workers)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "number of files to load concurrently (default: NumCPU)")
	return cmd
}

// loadFiles replays each matched script file's statements against g,
// fanning the files themselves out across a worker pool. Statements
// within one file still run in order; only distinct files run
// concurrently, since the reference backend gives no cross-query
// isolation guarantee beyond per-collection locking.
func loadFiles(g *graphdb.Graph, files []string, workers int) error {
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	jobs := make(chan string)
	errs := make(chan error, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if err := loadFile(g, path); err != nil {
					errs <- fmt.Errorf("%s: %w", path, err)
				}
			}
		}()
	}

	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	wg.Wait()
	close(errs)

	var failures []string
	for err := range errs {
		failures = append(failures, err.Error())
		fmt.Fprintln(os.Stderr, err)
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d file(s) failed to load", len(failures))
	}
	return nil
}

func loadFile(g *graphdb.Graph, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for _, stmt := range splitStatements(string(data)) {
		if stmt == "" {
			continue
		}
		if _, err := g.Execute(context.Background(), stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

// splitStatements splits a script on ';' line terminators, skipping
// `// ` header comment lines the dump exporter emits.
func splitStatements(script string) []string {
	var stmts []string
	var buf strings.Builder
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") || trimmed == "" {
			continue
		}
		buf.WriteString(line)
		buf.WriteString("\n")
		if strings.Contains(line, ";") {
			stmts = append(stmts, strings.TrimSpace(buf.String()))
			buf.Reset()
		}
	}
	if buf.Len() > 0 {
		stmts = append(stmts, strings.TrimSpace(buf.String()))
	}
	return stmts
}
