package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/mattn/go-runewidth"

	"reprieve/internal/config"
	"reprieve/internal/reconcile"
	"reprieve/internal/store"
	"reprieve/internal/types"
)

const (
	listRefWidth   = 24
	listTitleWidth = 44
)

type ListCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	now        func() time.Time
}

func NewListCommand(stdout, stderr io.Writer, loadConfig func() (config.Config, error)) *ListCommand {
	return &ListCommand{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: loadConfig,
		now:        time.Now,
	}
}

func (c *ListCommand) Run(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	buckets := fs.String("buckets", "", "time buckets: relative|none (default from config)")
	urls := fs.Bool("urls", false, "print item urls")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: reprieve list [flags] <scope>")
	}
	scope, err := parseScope(fs.Arg(0))
	if err != nil {
		return err
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	mode := cfg.UIBuckets()
	if *buckets != "" {
		mode = *buckets
	}

	ctx := context.Background()
	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	list, err := repo.Load(ctx, scope)
	if errors.Is(err, store.ErrScopeNotFound) {
		fmt.Fprintf(c.stdout, "%s is empty\n", scope)
		return nil
	}
	if err != nil {
		return err
	}
	visible := reconcile.Reconcile(list, types.PendingSet{}, reconcile.BucketerForMode(mode, c.now()))
	printVisibleList(c.stdout, visible, *urls)
	return nil
}

func printVisibleList(out io.Writer, visible types.VisibleList, urls bool) {
	if len(visible.Rows) == 0 {
		fmt.Fprintf(out, "%s is empty\n", visible.Scope)
		return
	}
	for _, row := range visible.Rows {
		if row.Header != "" {
			fmt.Fprintln(out, row.Header)
		}
		entry := row.Entry
		if entry.IsGroup() {
			label := fmt.Sprintf("%s (%d)", entry.Group.Title, row.VisibleCount)
			printListLine(out, types.GroupRef(entry.Group.ID), label, "", false)
			for _, member := range entry.Group.Items {
				printListLine(out, types.MemberRef(entry.Group.ID, member.ID), "  "+member.Title, member.URL, urls)
			}
			continue
		}
		if entry.Item != nil {
			printListLine(out, types.LeafRef(entry.Item.ID), entry.Item.Title, entry.Item.URL, urls)
		}
	}
}

func printListLine(out io.Writer, ref types.ItemRef, title, url string, urls bool) {
	refText := runewidth.FillRight(runewidth.Truncate(ref.String(), listRefWidth, "…"), listRefWidth)
	line := "  " + refText + "  " + runewidth.Truncate(title, listTitleWidth, "…")
	if urls && url != "" {
		line = runewidth.FillRight(line, 2+listRefWidth+2+listTitleWidth) + "  " + url
	}
	fmt.Fprintln(out, line)
}
