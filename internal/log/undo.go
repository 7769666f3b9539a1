package log

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ErrNoSessions is returned when there is no recorded session to undo.
var ErrNoSessions = errors.New("no sessions found")

type UndoResult struct {
	Operation OperationLog
	Success   bool
	Error     error
}

// UndoOperation moves a renamed file back to its original path. It never
// overwrites a file that now occupies the original path.
func UndoOperation(op OperationLog) UndoResult {
	result := UndoResult{Operation: op}

	if op.Type != OpRename {
		result.Error = fmt.Errorf("unknown operation type: %s", op.Type)
		return result
	}
	if op.DestPath == "" {
		result.Error = fmt.Errorf("cannot undo rename: destination path missing")
		return result
	}
	if _, err := os.Stat(op.DestPath); os.IsNotExist(err) {
		result.Error = fmt.Errorf("cannot undo rename: file %s not found", op.DestPath)
		return result
	}
	if _, err := os.Stat(op.SourcePath); err == nil {
		result.Error = fmt.Errorf("cannot undo rename: original path %s already exists", op.SourcePath)
		return result
	}
	if err := os.Rename(op.DestPath, op.SourcePath); err != nil {
		result.Error = fmt.Errorf("failed to rename %s back to %s: %w", op.DestPath, op.SourcePath, err)
		return result
	}

	result.Success = true
	return result
}

// UndoSession reverses the successful operations of a session, newest first.
// Each reversal is recorded into the current session, if one is open.
func UndoSession(session *LogSession) (successful int, failed int, errs []error) {
	for i := len(session.Operations) - 1; i >= 0; i-- {
		op := session.Operations[i]
		if !op.Success {
			continue
		}

		result := UndoOperation(op)
		LogRename(op.DestPath, op.SourcePath, result.Success, result.Error)
		if result.Success {
			successful++
			continue
		}
		failed++
		if result.Error != nil {
			errs = append(errs, result.Error)
		}
	}
	return successful, failed, errs
}

// FindLatestSession returns the newest readable session and its file.
func FindLatestSession() (*LogSession, string, error) {
	return FindSession("")
}

// FindSession returns the newest session whose ID starts with prefix. An
// empty prefix matches any session.
func FindSession(prefix string) (*LogSession, string, error) {
	files, err := sessionFiles()
	if err != nil {
		return nil, "", fmt.Errorf("failed to read sessions: %w", err)
	}
	for _, file := range files {
		session, err := ReadSession(file)
		if err != nil {
			continue
		}
		if strings.HasPrefix(session.Metadata.SessionID, prefix) {
			return session, file, nil
		}
	}
	if prefix != "" {
		return nil, "", fmt.Errorf("session %s: %w", prefix, ErrNoSessions)
	}
	return nil, "", ErrNoSessions
}

type SessionSummary struct {
	Session      *LogSession
	FilePath     string
	RelativeTime string
}

// GetSessionSummaries lists every readable session, newest first.
func GetSessionSummaries() ([]SessionSummary, error) {
	files, err := sessionFiles()
	if err != nil {
		return nil, err
	}

	summaries := make([]SessionSummary, 0, len(files))
	for _, file := range files {
		session, err := ReadSession(file)
		if err != nil {
			continue
		}
		summaries = append(summaries, SessionSummary{
			Session:      session,
			FilePath:     file,
			RelativeTime: formatRelativeTime(session.Metadata.Timestamp),
		})
	}
	return summaries, nil
}

func formatRelativeTime(t time.Time) string {
	duration := time.Since(t)
	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		mins := int(duration.Minutes())
		return fmt.Sprintf("%d minute%s ago", mins, plural(mins))
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		return fmt.Sprintf("%d hour%s ago", hours, plural(hours))
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		return fmt.Sprintf("%d day%s ago", days, plural(days))
	default:
		return t.Format("Jan 2, 2006")
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
