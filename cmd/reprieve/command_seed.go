package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"reprieve/internal/config"
	"reprieve/internal/types"
)

type SeedCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	now        func() time.Time
}

func NewSeedCommand(stdout, stderr io.Writer, loadConfig func() (config.Config, error)) *SeedCommand {
	return &SeedCommand{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: loadConfig,
		now:        time.Now,
	}
}

func (c *SeedCommand) Run(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	force := fs.Bool("force", false, "overwrite scopes that already have a list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	existing, err := repo.Scopes(ctx)
	if err != nil {
		return err
	}
	present := map[types.Scope]bool{}
	for _, scope := range existing {
		present[scope] = true
	}
	for _, list := range sampleLists(c.now()) {
		if present[list.Scope] && !*force {
			fmt.Fprintf(c.stdout, "%s: kept existing list\n", list.Scope)
			continue
		}
		if err := repo.Save(ctx, list); err != nil {
			return fmt.Errorf("save %s: %w", list.Scope, err)
		}
		fmt.Fprintf(c.stdout, "%s: %d items\n", list.Scope, len(list.Refs()))
	}
	return nil
}

func sampleLists(now time.Time) []types.SourceList {
	ago := func(d time.Duration) time.Time { return now.Add(-d).Truncate(time.Minute) }
	day := 24 * time.Hour
	return []types.SourceList{
		{
			Scope: types.ScopeHistory,
			Entries: []types.Entry{
				types.GroupEntry(types.Group{
					ID:    "example.com",
					Title: "example.com",
					Items: []types.Item{
						{ID: "a1", Title: "Example Domain", URL: "https://example.com/", Timestamp: ago(10 * time.Minute)},
						{ID: "a2", Title: "Example Docs", URL: "https://example.com/docs", Timestamp: ago(25 * time.Minute)},
						{ID: "a3", Title: "Example Pricing", URL: "https://example.com/pricing", Timestamp: ago(40 * time.Minute)},
					},
				}),
				types.ItemEntry(types.Item{ID: "b", Title: "The Go Programming Language", URL: "https://go.dev/", Timestamp: ago(2 * time.Hour)}),
				types.GroupEntry(types.Group{
					ID:    "pkg.go.dev",
					Title: "pkg.go.dev",
					Items: []types.Item{
						{ID: "p1", Title: "bbolt package", URL: "https://pkg.go.dev/go.etcd.io/bbolt", Timestamp: ago(day + time.Hour)},
						{ID: "p2", Title: "errgroup package", URL: "https://pkg.go.dev/golang.org/x/sync/errgroup", Timestamp: ago(day + 2*time.Hour)},
					},
				}),
				types.ItemEntry(types.Item{ID: "c", Title: "Effective Go", URL: "https://go.dev/doc/effective_go", Timestamp: ago(3 * day)}),
				types.ItemEntry(types.Item{ID: "d", Title: "Release notes", URL: "https://go.dev/doc/devel/release", Timestamp: ago(12 * day)}),
				types.ItemEntry(types.Item{ID: "e", Title: "Old search results", URL: "https://duckduckgo.com/?q=undo+window", Timestamp: ago(45 * day)}),
			},
		},
		{
			Scope: types.ScopeBookmarks,
			Entries: []types.Entry{
				types.GroupEntry(types.Group{
					ID:    "reading",
					Title: "Reading list",
					Items: []types.Item{
						{ID: "r1", Title: "Go memory model", URL: "https://go.dev/ref/mem", Timestamp: ago(time.Hour)},
						{ID: "r2", Title: "Share memory by communicating", URL: "https://go.dev/blog/codelab-share", Timestamp: ago(4 * day)},
					},
				}),
				types.ItemEntry(types.Item{ID: "gh", Title: "GitHub", URL: "https://github.com/", Timestamp: ago(9 * day)}),
			},
		},
		{
			Scope: types.ScopeDownloads,
			Entries: []types.Entry{
				types.ItemEntry(types.Item{ID: "dl1", Title: "go1.24.2.linux-amd64.tar.gz", URL: "https://go.dev/dl/go1.24.2.linux-amd64.tar.gz", Timestamp: ago(3 * time.Hour)}),
				types.ItemEntry(types.Item{ID: "dl2", Title: "report-final-v2.pdf", Timestamp: ago(2 * day)}),
				types.ItemEntry(types.Item{ID: "dl3", Title: "screenshot 2026-01-04.png", Timestamp: ago(40 * day)}),
			},
		},
	}
}
