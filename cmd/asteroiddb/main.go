// asteroiddb is an interactive SQL shell over an AsteroidDB database
// directory.
//
// Usage:
//
//	asteroiddb [--db DIR | -d DIR] [--pool-size N | -p N]
//
// Commands (in REPL):
//
//	<SQL statement>   CREATE TABLE / INSERT / SELECT / DELETE, optional trailing ;
//	\d                List tables
//	\d <table>        Describe a table's columns
//	\stats            Show buffer pool statistics
//	help              Show this help
//	exit / quit       Exit
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/peterh/liner"
	"github.com/spf13/pflag"

	"github.com/samoreilly/asteroiddb/asteroiddb"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dataDir := pflag.StringP("db", "d", ".", "database directory")
	poolSize := pflag.IntP("pool-size", "p", 0, "buffer pool size in pages (overrides config file and default)")
	pflag.Parse()

	db, err := asteroiddb.Open(*dataDir, *poolSize)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	shell := &shell{db: db, sessionID: uuid.New()}
	return shell.run()
}

type shell struct {
	db        *asteroiddb.DB
	liner     *liner.State
	sessionID uuid.UUID
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".asteroiddb_history")
}

func (s *shell) run() error {
	s.liner = liner.NewLiner()
	defer s.liner.Close()

	s.liner.SetCtrlCAborts(true)
	s.liner.SetCompleter(s.completer)

	if f, err := os.Open(historyFile()); err == nil {
		s.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Println("AsteroidDB - a small relational storage engine")
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := s.liner.Prompt("AsteroidDB> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || err == io.EOF {
				fmt.Println("\nBye!")
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.liner.AppendHistory(line)

		if s.dispatchMeta(line) {
			continue
		}

		result, err := func() (result interface{ Render() string }, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("internal error: %v", r)
				}
			}()
			return s.db.Exec(line)
		}()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		s.printResult(result)
	}

	s.saveHistory()
	return nil
}

// dispatchMeta handles the `\`-prefixed and bare-word meta-commands; it
// reports whether line was one of them so the caller skips SQL execution.
func (s *shell) dispatchMeta(line string) bool {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case "exit", "quit":
		fmt.Println("Bye!")
		s.saveHistory()
		os.Exit(0)
	case "help", "?":
		s.printHelp()
	case "\\d":
		s.describe(fields[1:])
	case "\\stats":
		s.printStats(fields[1:])
	default:
		return false
	}
	return true
}

func (s *shell) describe(args []string) {
	if len(args) == 0 {
		names := s.db.TableNames()
		if len(names) == 0 {
			fmt.Println("(no tables)")
			return
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	schema, err := s.db.Schema(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	for i, col := range schema.Columns {
		marker := ""
		if i == schema.IndexColumn {
			marker = " (indexed)"
		}
		fmt.Printf("  %-20s %s%s\n", col.Name, col.Type, marker)
	}
}

// printStats reports one table's combined page-manager/buffer-pool
// bookkeeping. With no table named, it lists every table instead, since
// stats are kept per table's own storage file, not database-wide.
func (s *shell) printStats(args []string) {
	fmt.Printf("session %s\n", s.sessionID)

	tables := args
	if len(tables) == 0 {
		tables = s.db.TableNames()
	}
	if len(tables) == 0 {
		fmt.Println("(no tables)")
		return
	}

	for _, name := range tables {
		stats, err := s.db.Stats(name)
		if err != nil {
			fmt.Printf("%s: error: %v\n", name, err)
			continue
		}
		fmt.Printf("%s: pages allocated=%d read=%d written=%d | cache hits=%d misses=%d hit_rate=%.2f evictions=%d | pins=%d unpins=%d\n",
			name, stats.PagesAllocated, stats.PagesRead, stats.PagesWritten,
			stats.CacheHits, stats.CacheMisses, stats.HitRate(), stats.Evictions,
			stats.PinCount, stats.UnpinCount)
	}
}

func (s *shell) printResult(result interface{ Render() string }) {
	fmt.Println(result.Render())
}

func (s *shell) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  <SQL statement>   CREATE TABLE / INSERT / SELECT / DELETE, optional trailing ;")
	fmt.Println("  \\d                List tables")
	fmt.Println("  \\d <table>        Describe a table's columns")
	fmt.Println("  \\stats            Show buffer pool statistics")
	fmt.Println("  help              Show this help")
	fmt.Println("  exit / quit       Exit")
}

func (s *shell) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			s.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (s *shell) completer(line string) []string {
	commands := []string{"select", "insert", "create", "delete", "help", "exit", "quit", "\\d", "\\stats"}
	var completions []string
	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}
	return completions
}
