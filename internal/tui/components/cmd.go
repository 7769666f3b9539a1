package components

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DebounceMsg returns a command that emits msg after the delay. Callers tag
// msg with a sequence number and ignore all but the latest.
func DebounceMsg(delay time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg { return msg })
}

// Receive returns a command that blocks until ch yields a value and wraps it
// as a message. It yields nil once ctx is done or ch is closed, so the
// caller stops re-arming it.
func Receive[T any](ctx context.Context, ch <-chan T, wrap func(T) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		select {
		case v, ok := <-ch:
			if !ok {
				return nil
			}
			return wrap(v)
		case <-ctx.Done():
			return nil
		}
	}
}
