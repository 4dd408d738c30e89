package main

import (
	"fmt"
	"os"
)

const usageText = `reprieve deletes list items with an undo window.

Usage:
  reprieve <command> [flags] [args]

Commands:
  config   print configuration (effective or defaults)
  seed     write sample history, bookmarks and downloads lists
  list     print a scope's list with time-bucket headers
  delete   delete items after the undo window (ctrl+c undoes)
  ui       run the terminal UI
  help     show help

Flags:
  -h, --help   show help

Item refs:
  id          a top-level item
  group/id    one member of a group
  group/*     a whole group

Examples:
  reprieve seed
  reprieve list history
  reprieve delete --window 10s history example.com/a1 b
  reprieve config --default --format toml
  reprieve ui --metrics-addr 127.0.0.1:9464
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	wiring := defaultCommandWiring(os.Stdout, os.Stderr)
	commands := buildCommands(wiring)

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	}

	runner, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	exitOnErr(args[0], runner.Run(args[1:]), wiring.stderr)
}
