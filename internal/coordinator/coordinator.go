// Package coordinator runs deferred deletions: requested items are hidden at
// once and only deleted from storage when their undo window elapses or the
// caller flushes.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"reprieve/internal/logging"
	"reprieve/internal/state"
	"reprieve/internal/types"
)

const (
	DefaultWindow        = 5 * time.Second
	DefaultCommitTimeout = 30 * time.Second
	maxRecentEpisodes    = 256
)

// Deleter is the storage collaborator. DeleteItems is called at most once per
// episode, off the caller's goroutine.
type Deleter interface {
	DeleteItems(ctx context.Context, scope types.Scope, refs []types.ItemRef) error
}

type DeleterFunc func(ctx context.Context, scope types.Scope, refs []types.ItemRef) error

func (f DeleterFunc) DeleteItems(ctx context.Context, scope types.Scope, refs []types.ItemRef) error {
	return f(ctx, scope, refs)
}

// Dispatcher is the store's mutation point.
type Dispatcher interface {
	Dispatch(action state.Action) state.State
}

// NotificationPublisher receives advisory episode outcomes.
type NotificationPublisher interface {
	Publish(event types.NotificationEvent)
}

type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d on its own goroutine.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Options struct {
	Window        time.Duration
	ScopeWindows  map[types.Scope]time.Duration
	CommitTimeout time.Duration
	Notifier      NotificationPublisher
	Metrics       *Metrics
	Logger        logging.Logger
	AfterFunc     AfterFunc
	Now           func() time.Time
	NewToken      func() string
}

// Coordinator owns at most one live episode per scope. Requests for a scope
// with a scheduled episode merge into it and restart its window; undo and
// commit race through a single compare-and-swap on the episode state.
type Coordinator struct {
	deleter       Deleter
	dispatcher    Dispatcher
	notifier      NotificationPublisher
	metrics       *Metrics
	logger        logging.Logger
	afterFunc     AfterFunc
	now           func() time.Time
	newToken      func() string
	window        time.Duration
	scopeWindows  map[types.Scope]time.Duration
	commitTimeout time.Duration

	mu          sync.Mutex
	live        map[types.Scope]*episode
	recent      map[string]*episode
	recentOrder []string
	closed      bool
	wg          sync.WaitGroup
}

func New(deleter Deleter, dispatcher Dispatcher, opts Options) *Coordinator {
	c := &Coordinator{
		deleter:       deleter,
		dispatcher:    dispatcher,
		notifier:      opts.Notifier,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		afterFunc:     opts.AfterFunc,
		now:           opts.Now,
		newToken:      opts.NewToken,
		window:        opts.Window,
		scopeWindows:  map[types.Scope]time.Duration{},
		commitTimeout: opts.CommitTimeout,
		live:          map[types.Scope]*episode{},
		recent:        map[string]*episode{},
	}
	if c.logger == nil {
		c.logger = logging.Nop()
	}
	c.logger = c.logger.With(logging.F("component", "deletion_coordinator"))
	if c.afterFunc == nil {
		c.afterFunc = realAfterFunc
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newToken == nil {
		c.newToken = uuid.NewString
	}
	if c.window <= 0 {
		c.window = DefaultWindow
	}
	if c.commitTimeout <= 0 {
		c.commitTimeout = DefaultCommitTimeout
	}
	for scope, window := range opts.ScopeWindows {
		if window > 0 {
			c.scopeWindows[scope] = window
		}
	}
	return c
}

// WindowFor returns the undo window applied to scope.
func (c *Coordinator) WindowFor(scope types.Scope) time.Duration {
	if window, ok := c.scopeWindows[scope]; ok {
		return window
	}
	return c.window
}

// Request hides refs immediately and schedules their deletion. A scheduled
// episode for the scope absorbs the refs and restarts its window; the
// returned token is the episode's. The pending mark is published to the
// store before Request returns.
func (c *Coordinator) Request(scope types.Scope, refs []types.ItemRef) (string, error) {
	refs = types.NormalizeItemRefs(refs)
	if scope == "" {
		return "", invalidRequestError(scope, "", "scope is required")
	}
	if len(refs) == 0 {
		return "", invalidRequestError(scope, "", "at least one item is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", closedError()
	}

	kind := "merged"
	ep := c.live[scope]
	switch {
	case ep == nil:
		kind = "new"
		ep = newEpisode(scope, c.newToken())
		ep.items = types.NewPendingSet(refs...)
		c.live[scope] = ep
		c.armLocked(ep)
	case ep.State() == types.EpisodeScheduled:
		ep.items = ep.items.With(refs...)
		c.armLocked(ep)
	default:
		committing := ep
		refs = withoutRefs(refs, committing.items)
		if len(refs) == 0 {
			return committing.token, nil
		}
		kind = "queued"
		if committing.successor == nil {
			committing.successor = newEpisode(scope, c.newToken())
		}
		ep = committing.successor
		ep.items = ep.items.With(refs...)
	}

	c.dispatcher.Dispatch(state.MarkPending{Scope: scope, Items: refs})
	if c.live[scope] == ep {
		c.dispatcher.Dispatch(state.EpisodeChanged{Episode: ep.snapshot(c.now())})
	}
	c.metrics.request(scope, kind)
	c.updatePendingGaugeLocked(scope)
	c.publishLocked(ep, types.EpisodeScheduled)
	c.logger.Info("deletion_requested",
		logging.F("scope", scope),
		logging.F("token", ep.token),
		logging.F("kind", kind),
		logging.F("items", types.ItemRefs(refs)),
		logging.F("episode_items", ep.items.Len()),
		logging.F("deadline", ep.deadline),
	)
	return ep.token, nil
}

// Undo cancels the episode identified by token if it is still scheduled and
// restores its items. Once the commit has begun, or the episode has committed
// or failed, Undo returns ErrTooLate and changes nothing. Undoing an already
// cancelled episode returns nil again, so a repeated undo reads as success.
//
// Only the most recent 256 finished episodes are remembered. An older token is
// unknown and returns ErrInvalidRequest rather than ErrTooLate, as does a
// token that belongs to another scope.
func (c *Coordinator) Undo(scope types.Scope, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ep := c.lookupLocked(scope, token)
	if ep == nil {
		return invalidRequestError(scope, token, "unknown deletion token")
	}
	if !ep.transition(types.EpisodeScheduled, types.EpisodeCancelled) {
		current := ep.State()
		if current == types.EpisodeCancelled {
			return nil
		}
		c.metrics.tooLate(scope)
		c.logger.Info("deletion_undo_too_late",
			logging.F("scope", scope),
			logging.F("token", token),
			logging.F("state", current),
		)
		return tooLateError(scope, token, current)
	}

	ep.stopTimer()
	refs := ep.items.Refs()
	c.dispatcher.Dispatch(state.UnmarkPending{Scope: scope, Items: refs})
	c.finishLocked(ep, nil)
	c.logger.Info("deletion_undone",
		logging.F("scope", scope),
		logging.F("token", token),
		logging.F("items", types.ItemRefs(refs)),
	)
	return nil
}

// Flush commits the scope's live episode now instead of at its deadline and
// waits for the outcome. A storage failure is returned as ErrStorageFailure;
// the items have been restored by then.
func (c *Coordinator) Flush(ctx context.Context, scope types.Scope) error {
	c.mu.Lock()
	ep := c.live[scope]
	if ep == nil {
		c.mu.Unlock()
		return nil
	}
	waits := []*episode{ep}
	if ep.State() == types.EpisodeScheduled {
		c.beginCommitLocked(ep, "flush")
	} else if ep.successor != nil {
		ep.successor.flushRequested = true
		waits = append(waits, ep.successor)
	}
	c.mu.Unlock()

	var errs error
	for _, waiting := range waits {
		select {
		case <-waiting.done:
			errs = errors.Join(errs, waiting.err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return errs
}

// FlushAll flushes every scope concurrently.
func (c *Coordinator) FlushAll(ctx context.Context) error {
	c.mu.Lock()
	scopes := make([]types.Scope, 0, len(c.live))
	for scope := range c.live {
		scopes = append(scopes, scope)
	}
	c.mu.Unlock()

	var g errgroup.Group
	for _, scope := range scopes {
		scope := scope
		g.Go(func() error {
			return c.Flush(ctx, scope)
		})
	}
	return g.Wait()
}

// Close rejects new requests, flushes every live episode and waits for all
// commits to finish.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	err := c.FlushAll(ctx)
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return err
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
}

// Episode returns a snapshot of the scope's live episode.
func (c *Coordinator) Episode(scope types.Scope) (types.EpisodeSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ep := c.live[scope]
	if ep == nil {
		return types.EpisodeSnapshot{}, false
	}
	return ep.snapshot(c.now()), true
}

func (c *Coordinator) armLocked(ep *episode) {
	ep.stopTimer()
	gen := ep.gen
	window := c.WindowFor(ep.scope)
	ep.deadline = c.now().Add(window)
	ep.timer = c.afterFunc(window, func() {
		c.onDeadline(ep, gen)
	})
}

// onDeadline runs on the timer's goroutine. It re-enters through c.mu, and a
// timer superseded by a later arm or stop sees a stale generation and exits.
func (c *Coordinator) onDeadline(ep *episode, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ep.gen != gen {
		return
	}
	c.beginCommitLocked(ep, "deadline")
}

func (c *Coordinator) beginCommitLocked(ep *episode, reason string) bool {
	if !ep.transition(types.EpisodeScheduled, types.EpisodeCommitting) {
		return false
	}
	ep.stopTimer()
	refs := ep.items.Refs()
	c.dispatcher.Dispatch(state.EpisodeChanged{Episode: ep.snapshot(c.now())})
	c.logger.Info("deletion_commit_started",
		logging.F("scope", ep.scope),
		logging.F("token", ep.token),
		logging.F("reason", reason),
		logging.F("items", types.ItemRefs(refs)),
	)
	c.wg.Add(1)
	go c.commit(ep, refs)
	return true
}

func (c *Coordinator) commit(ep *episode, refs []types.ItemRef) {
	defer c.wg.Done()
	ctx, cancel := context.WithTimeout(context.Background(), c.commitTimeout)
	defer cancel()

	started := time.Now()
	err := c.deleteItems(ctx, ep.scope, refs)
	c.metrics.commitLatency(ep.scope, time.Since(started))

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.dispatcher.Dispatch(state.RestorePending{Scope: ep.scope, Items: refs, Error: err.Error()})
		ep.transition(types.EpisodeCommitting, types.EpisodeFailed)
		c.finishLocked(ep, storageFailureError(ep.scope, ep.token, err))
		c.logger.Warn("deletion_commit_failed",
			logging.F("scope", ep.scope),
			logging.F("token", ep.token),
			logging.F("items", types.ItemRefs(refs)),
			logging.F("error", err),
		)
		return
	}
	c.dispatcher.Dispatch(state.FinalizeDeletion{Scope: ep.scope, Items: refs})
	ep.transition(types.EpisodeCommitting, types.EpisodeCommitted)
	c.finishLocked(ep, nil)
	c.logger.Info("deletion_committed",
		logging.F("scope", ep.scope),
		logging.F("token", ep.token),
		logging.F("items", types.ItemRefs(refs)),
	)
}

// deleteItems calls the storage collaborator, converting a panic into an
// error so the episode still reaches a terminal state.
func (c *Coordinator) deleteItems(ctx context.Context, scope types.Scope, refs []types.ItemRef) (err error) {
	if c.deleter == nil {
		return errors.New("no storage configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("storage delete panicked: %v", r)
		}
	}()
	return c.deleter.DeleteItems(ctx, scope, refs)
}

// finishLocked records a terminal episode, mirrors it into the store, and
// promotes a queued successor.
func (c *Coordinator) finishLocked(ep *episode, err error) {
	ep.err = err
	live := c.live[ep.scope]
	if live == ep {
		delete(c.live, ep.scope)
		c.dispatcher.Dispatch(state.EpisodeChanged{Episode: ep.snapshot(c.now())})
	} else if live != nil && live.successor == ep {
		live.successor = nil
	}
	c.rememberLocked(ep)
	c.metrics.outcome(ep.scope, ep.State())
	c.publishLocked(ep, ep.State())

	if next := ep.successor; next != nil {
		ep.successor = nil
		if next.State() == types.EpisodeScheduled && !next.items.Empty() {
			c.live[ep.scope] = next
			c.armLocked(next)
			c.dispatcher.Dispatch(state.EpisodeChanged{Episode: next.snapshot(c.now())})
			if next.flushRequested {
				c.beginCommitLocked(next, "flush")
			}
		}
	}
	c.updatePendingGaugeLocked(ep.scope)
	close(ep.done)
}

func (c *Coordinator) lookupLocked(scope types.Scope, token string) *episode {
	if token == "" {
		return nil
	}
	if ep := c.live[scope]; ep != nil {
		if ep.token == token {
			return ep
		}
		if ep.successor != nil && ep.successor.token == token {
			return ep.successor
		}
	}
	if ep, ok := c.recent[token]; ok && ep.scope == scope {
		return ep
	}
	return nil
}

func (c *Coordinator) rememberLocked(ep *episode) {
	if _, ok := c.recent[ep.token]; ok {
		return
	}
	c.recent[ep.token] = ep
	c.recentOrder = append(c.recentOrder, ep.token)
	for len(c.recentOrder) > maxRecentEpisodes {
		delete(c.recent, c.recentOrder[0])
		c.recentOrder = c.recentOrder[1:]
	}
}

func (c *Coordinator) updatePendingGaugeLocked(scope types.Scope) {
	count := 0
	if ep := c.live[scope]; ep != nil {
		count += ep.items.Len()
		if ep.successor != nil {
			count += ep.successor.items.Len()
		}
	}
	c.metrics.pending(scope, count)
}

func (c *Coordinator) publishLocked(ep *episode, st types.EpisodeState) {
	if c.notifier == nil {
		return
	}
	trigger, ok := types.NotificationTriggerForState(st)
	if !ok {
		return
	}
	event := types.NotificationEvent{
		Trigger:    trigger,
		OccurredAt: c.now().UTC().Format(time.RFC3339Nano),
		Scope:      ep.scope,
		Token:      ep.token,
		Count:      ep.items.Len(),
		Items:      ep.items.Refs(),
	}
	if ep.err != nil {
		event.Error = ep.err.Error()
	}
	c.notifier.Publish(event)
}

func withoutRefs(refs []types.ItemRef, exclude types.PendingSet) []types.ItemRef {
	out := make([]types.ItemRef, 0, len(refs))
	for _, ref := range refs {
		if exclude.Hides(ref) {
			continue
		}
		out = append(out, ref)
	}
	return out
}
