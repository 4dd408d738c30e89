package main

import (
	"context"
	"io"
	"os"

	"reprieve/internal/app"
	"reprieve/internal/config"
)

type commandRunner interface {
	Run(args []string) error
}

type commandWiring struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	runUI      func(ctx context.Context, opts app.Options) error
}

func defaultCommandWiring(stdout, stderr io.Writer) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return commandWiring{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: config.Load,
		runUI:      app.Run,
	}
}

func buildCommands(wiring commandWiring) map[string]commandRunner {
	return map[string]commandRunner{
		"config": NewConfigCommand(wiring.stdout, wiring.stderr, wiring.loadConfig),
		"seed":   NewSeedCommand(wiring.stdout, wiring.stderr, wiring.loadConfig),
		"list":   NewListCommand(wiring.stdout, wiring.stderr, wiring.loadConfig),
		"delete": NewDeleteCommand(wiring.stdout, wiring.stderr, wiring.loadConfig),
		"ui":     NewUICommand(wiring.stderr, wiring.loadConfig, wiring.runUI),
	}
}
