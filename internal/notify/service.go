package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"reprieve/internal/logging"
	"reprieve/internal/types"
)

const dispatchTimeout = 5 * time.Second

type Service struct {
	resolver   PolicyResolver
	dispatcher Dispatcher
	dedupe     DedupePolicy
	logger     logging.Logger

	mu       sync.RWMutex
	events   chan types.NotificationEvent
	runCtx   context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  bool
	stopping bool
	closed   bool
}

func NewService(resolver PolicyResolver, dispatcher Dispatcher, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	svc := &Service{
		resolver:   resolver,
		dispatcher: dispatcher,
		dedupe:     newWindowDedupePolicy(time.Now),
		logger:     logger.With(logging.F("component", "notifications")),
		events:     make(chan types.NotificationEvent, 256),
	}
	svc.Start()
	return svc
}

func (s *Service) Start() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.runCtx, s.cancel = context.WithCancel(context.Background())
	s.started = true
	s.wg.Add(1)
	go s.run(s.runCtx)
}

// Stop delivers what is already queued, then stops the worker.
func (s *Service) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.stopping = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.mu.Lock()
		s.stopping = false
		s.started = false
		s.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) Close() {
	_ = s.Stop(context.Background())
}

// Publish queues event without blocking. A full queue drops the event.
func (s *Service) Publish(event types.NotificationEvent) {
	if s == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopping || s.closed || !s.started {
		s.logger.Debug("notification_publish_ignored_stopping",
			logging.F("trigger", event.Trigger),
			logging.F("scope", event.Scope),
		)
		return
	}
	select {
	case s.events <- event:
	default:
		s.logger.Warn("notification_queue_full",
			logging.F("trigger", event.Trigger),
			logging.F("scope", event.Scope),
		)
	}
}

func (s *Service) run(runCtx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-runCtx.Done():
			s.drain()
			return
		case event := <-s.events:
			s.handle(runCtx, event)
		}
	}
}

func (s *Service) drain() {
	for {
		select {
		case event := <-s.events:
			s.handle(context.Background(), event)
		default:
			return
		}
	}
}

func (s *Service) handle(ctx context.Context, event types.NotificationEvent) {
	if s.resolver == nil || s.dispatcher == nil {
		return
	}
	event = normalizeEvent(event)
	if event.Trigger == "" {
		return
	}
	settings := s.resolver.Resolve(ctx, event)
	if !settings.Enabled {
		return
	}
	if !types.NotificationTriggerEnabled(settings, event.Trigger) {
		return
	}
	if s.dedupe != nil && s.dedupe.ShouldSuppress(event, settings) {
		return
	}

	dispatchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()
	if err := s.dispatcher.Dispatch(dispatchCtx, event, settings); err != nil {
		s.logger.Warn("notification_dispatch_failed",
			logging.F("trigger", event.Trigger),
			logging.F("scope", event.Scope),
			logging.F("error", err),
		)
	}
}

type windowDedupePolicy struct {
	mu       sync.Mutex
	now      func() time.Time
	lastSent map[string]time.Time
}

func newWindowDedupePolicy(now func() time.Time) *windowDedupePolicy {
	return &windowDedupePolicy{now: now, lastSent: map[string]time.Time{}}
}

func (p *windowDedupePolicy) ShouldSuppress(event types.NotificationEvent, settings types.NotificationSettings) bool {
	window := time.Duration(settings.DedupeWindowSeconds) * time.Second
	if window <= 0 {
		return false
	}
	key := dedupeKey(event)
	if strings.TrimSpace(key) == "" {
		return false
	}
	now := p.now().UTC()

	p.mu.Lock()
	defer p.mu.Unlock()
	if then, ok := p.lastSent[key]; ok && now.Sub(then) < window {
		return true
	}
	p.lastSent[key] = now
	if len(p.lastSent) > 2048 {
		cutoff := now.Add(-2 * window)
		for candidate, ts := range p.lastSent {
			if ts.Before(cutoff) {
				delete(p.lastSent, candidate)
			}
		}
	}
	return false
}
