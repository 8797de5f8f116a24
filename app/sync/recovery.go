package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/classmind/classmind/app/reminders"
)

// ensureReminder guarantees exactly one sink object backs the assignment.
// A known reference is updated in place. With no reference, the sink is
// searched by fingerprint before anything is created, so a crash between
// external creation and row persistence never produces a duplicate. The
// second return value reports whether an orphaned object was re-associated.
func (e *Engine) ensureReminder(ctx context.Context, listPath, ref, fingerprint string, payload reminders.Reminder) (string, bool, error) {
	if ref != "" {
		if err := e.sink.Update(ctx, listPath, ref, payload); err != nil {
			return "", false, fmt.Errorf("failed to update reminder: %w", err)
		}
		return ref, false, nil
	}

	recovered, err := e.resolveReminder(ctx, listPath, fingerprint)
	if err != nil {
		return "", false, err
	}
	if recovered != "" {
		if err := e.sink.Update(ctx, listPath, recovered, payload); err != nil {
			return "", false, fmt.Errorf("failed to update recovered reminder: %w", err)
		}
		return recovered, true, nil
	}

	created, err := e.sink.Create(ctx, listPath, payload)
	if err != nil {
		return "", false, fmt.Errorf("failed to create reminder: %w", err)
	}
	return created, false, nil
}

// resolveReminder searches the list for a reminder carrying the fingerprint
// in its notes. Multiple matches should not happen; when they do, the
// lexicographically first reference wins so the choice is deterministic.
func (e *Engine) resolveReminder(ctx context.Context, listPath, fingerprint string) (string, error) {
	if fingerprint == "" {
		return "", nil
	}

	refs, err := e.sink.FindByFingerprint(ctx, listPath, fingerprint)
	if err != nil {
		return "", fmt.Errorf("failed to search reminders by fingerprint: %w", err)
	}

	switch len(refs) {
	case 0:
		return "", nil
	case 1:
		return refs[0], nil
	default:
		sort.Strings(refs)
		slog.Warn("Multiple reminders match fingerprint, using first", "fingerprint", fingerprint, "count", len(refs))
		return refs[0], nil
	}
}
