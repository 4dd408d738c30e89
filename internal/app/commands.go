package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"reprieve/internal/types"
)

const (
	pageLoadTimeout  = 10 * time.Second
	quitFlushTimeout = 30 * time.Second
	tickInterval     = time.Second
)

type pageLoadedMsg struct {
	scope  types.Scope
	cursor string
	page   types.SourceList
	err    error
}

type flushDoneMsg struct {
	scope types.Scope
	err   error
}

type quitFlushedMsg struct {
	err error
}

type tickMsg time.Time

func loadPageCmd(pages PageLoader, scope types.Scope, cursor string, limit int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pageLoadTimeout)
		defer cancel()
		page, err := pages.Page(ctx, scope, cursor, limit)
		return pageLoadedMsg{scope: scope, cursor: cursor, page: page, err: err}
	}
}

func flushCmd(intents DeletionIntents, scope types.Scope) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), quitFlushTimeout)
		defer cancel()
		return flushDoneMsg{scope: scope, err: intents.Flush(ctx, scope)}
	}
}

func flushAllCmd(intents DeletionIntents) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), quitFlushTimeout)
		defer cancel()
		return quitFlushedMsg{err: intents.FlushAll(ctx)}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
