package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	graphdb "github.com/adaworld/graphdb"
)

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive Cypher shell reading statements from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, closeFn, err := openBackend()
			if err != nil {
				return err
			}
			defer closeFn()

			g := graphdb.New(backend)
			return runRepl(g, os.Stdin, os.Stdout)
		},
	}
}

// runRepl reads one statement per line (terminated by ';' or EOF) and
// prints its result, continuing past query errors so one bad statement
// doesn't kill the session.
func runRepl(g *graphdb.Graph, in *os.File, out *os.File) error {
	scanner := bufio.NewScanner(in)
	var buf strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		buf.WriteString(line)
		buf.WriteString("\n")
		if !strings.Contains(line, ";") {
			continue
		}
		stmt := strings.TrimSpace(buf.String())
		buf.Reset()
		if stmt == "" {
			continue
		}
		res, err := g.Execute(context.Background(), stmt, nil)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		printResult(res)
	}
	if stmt := strings.TrimSpace(buf.String()); stmt != "" {
		res, err := g.Execute(context.Background(), stmt, nil)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		} else {
			printResult(res)
		}
	}
	return scanner.Err()
}
