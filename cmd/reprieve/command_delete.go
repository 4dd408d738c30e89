package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reprieve/internal/config"
	"reprieve/internal/logging"
	"reprieve/internal/state"
	"reprieve/internal/types"
)

type DeleteCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	interrupts func(ctx context.Context) (context.Context, context.CancelFunc)
}

func NewDeleteCommand(stdout, stderr io.Writer, loadConfig func() (config.Config, error)) *DeleteCommand {
	return &DeleteCommand{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: loadConfig,
		interrupts: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		},
	}
}

func (c *DeleteCommand) Run(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	window := fs.Duration("window", 0, "undo window (default from config)")
	undo := fs.Bool("undo", false, "undo right after scheduling, leaving storage untouched")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return errors.New("usage: reprieve delete [flags] <scope> <ref>...")
	}
	scope, err := parseScope(fs.Arg(0))
	if err != nil {
		return err
	}
	refs := make([]types.ItemRef, 0, fs.NArg()-1)
	for _, raw := range fs.Args()[1:] {
		ref, err := types.ParseItemRef(raw)
		if err != nil {
			return err
		}
		refs = append(refs, ref)
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, c.stderr).With(logging.F("command", "delete"))
	ctx := context.Background()
	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	list, err := loadScopeList(ctx, repo, scope)
	if err != nil {
		return err
	}
	if missing := missingRefs(list, refs); len(missing) > 0 {
		return fmt.Errorf("not in %s: %s", scope, types.ItemRefs(missing))
	}

	rt := newDeletionRuntime(cfg, repo, logger, runtimeOptions{window: *window})
	rt.store.Dispatch(state.ListLoaded{Scope: scope, List: list})
	outcomes := make(chan types.EpisodeSnapshot, 8)
	unsubscribe := rt.store.Subscribe(func(s state.State) {
		if ep, ok := s.Episode(scope); ok && ep.State.Terminal() {
			select {
			case outcomes <- ep:
			default:
			}
		}
	})
	defer unsubscribe()

	token, err := rt.coord.Request(scope, refs)
	if err != nil {
		_ = rt.Close()
		return err
	}
	fmt.Fprintf(c.stdout, "%d %s removed from %s; deleting in %s (ctrl+c to undo)\n",
		len(refs), plural(len(refs), "item", "items"), scope, rt.coord.WindowFor(scope))

	result, err := c.await(ctx, rt, scope, token, *undo, outcomes)
	closeErr := rt.Close()
	if err != nil {
		return err
	}
	switch result.State {
	case types.EpisodeCancelled:
		fmt.Fprintf(c.stdout, "undone: %s left unchanged\n", scope)
	case types.EpisodeCommitted:
		fmt.Fprintf(c.stdout, "deleted %d %s from %s\n", len(result.Items), plural(len(result.Items), "item", "items"), scope)
	case types.EpisodeFailed:
		return fmt.Errorf("delete failed, items restored: %s", result.Error)
	}
	return closeErr
}

// await waits for the episode identified by token to finish. An interrupt
// during the window undoes it; once the commit has started the interrupt is
// ignored and the outcome is awaited.
func (c *DeleteCommand) await(ctx context.Context, rt *deletionRuntime, scope types.Scope, token string, undoNow bool, outcomes <-chan types.EpisodeSnapshot) (types.EpisodeSnapshot, error) {
	if undoNow {
		if err := rt.coord.Undo(scope, token); err != nil {
			return types.EpisodeSnapshot{}, err
		}
	}
	sigCtx, stop := c.interrupts(ctx)
	defer stop()
	interrupted := sigCtx.Done()
	deadline := time.NewTimer(rt.coord.WindowFor(scope) + rt.timeout + 5*time.Second)
	defer deadline.Stop()
	for {
		select {
		case ep := <-outcomes:
			if ep.Token == token {
				return ep, nil
			}
		case <-interrupted:
			interrupted = nil
			if err := rt.coord.Undo(scope, token); err != nil {
				fmt.Fprintf(c.stderr, "undo: %v\n", err)
			}
		case <-deadline.C:
			return types.EpisodeSnapshot{}, errors.New("timed out waiting for the deletion to finish")
		}
	}
}

func missingRefs(list types.SourceList, refs []types.ItemRef) []types.ItemRef {
	known := types.NewPendingSet(list.Refs()...)
	groups := map[string]struct{}{}
	for _, entry := range list.Entries {
		if entry.IsGroup() {
			groups[entry.Group.ID] = struct{}{}
		}
	}
	var missing []types.ItemRef
	for _, ref := range refs {
		if ref.IsGroup() {
			if _, ok := groups[ref.GroupID]; ok {
				continue
			}
		} else if known.Has(ref) {
			continue
		}
		missing = append(missing, ref)
	}
	return missing
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
