package app

import (
	"fmt"
	"math"
	"time"

	"reprieve/internal/notify"
	"reprieve/internal/types"
)

type statusLevel int

const (
	statusNone statusLevel = iota
	statusMuted
	statusInfo
	statusWarning
	statusError
)

func (m *Model) setStatus(level statusLevel, message string) {
	m.status = message
	m.statusLevel = level
}

func (m *Model) clearStatus() {
	m.status = ""
	m.statusLevel = statusNone
}

// episodeStatus describes ep for the status line. Scheduled episodes carry a
// countdown to their deadline.
func episodeStatus(ep types.EpisodeSnapshot, now time.Time, spin string) (string, statusLevel) {
	event := types.NotificationEvent{
		Scope: ep.Scope,
		Token: ep.Token,
		Count: len(ep.Items),
		Error: ep.Error,
	}
	if ep.State == types.EpisodeCommitting {
		noun := "items"
		if event.Count == 1 {
			noun = "item"
		}
		return fmt.Sprintf("%s deleting %d %s from %s", spin, event.Count, noun, ep.Scope), statusMuted
	}
	trigger, ok := types.NotificationTriggerForState(ep.State)
	if !ok {
		return "", statusNone
	}
	event.Trigger = trigger
	_, body := notify.Describe(event)
	switch ep.State {
	case types.EpisodeScheduled:
		return fmt.Sprintf("%s (%ds)", body, secondsLeft(ep.Deadline, now)), statusInfo
	case types.EpisodeFailed:
		return body, statusError
	default:
		return body, statusMuted
	}
}

func secondsLeft(deadline, now time.Time) int {
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Seconds()))
}

func (m *Model) statusLine() string {
	message, level := m.status, m.statusLevel
	if message == "" && m.hasEpisode {
		message, level = episodeStatus(m.episode, m.now(), m.spinner.View())
	}
	if message == "" {
		return statusMutedStyle.Render(m.help.View(m.keys))
	}
	if m.width > 2 {
		message = truncate(message, m.width-2)
	}
	switch level {
	case statusError:
		return statusErrorStyle.Render(message)
	case statusWarning:
		return statusWarningStyle.Render(message)
	case statusInfo:
		return statusInfoStyle.Render(message)
	default:
		return statusMutedStyle.Render(message)
	}
}
