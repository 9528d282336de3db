// Package notify tells the user when an export settles.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/gen2brain/beeep"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

// AlertFunc shows one desktop notification.
type AlertFunc func(title, message string) error

// Notifier logs every settled job and, when desktop alerts are enabled,
// raises a notification for it.
type Notifier struct {
	alert AlertFunc
}

// New returns a log-only notifier, or one that also raises desktop
// notifications.
func New(desktop bool) *Notifier {
	n := &Notifier{}
	if desktop {
		n.alert = func(title, message string) error {
			return beeep.Notify(title, message, "")
		}
	}
	return n
}

// WithAlert replaces the desktop alert, for tests and other front ends.
func (n *Notifier) WithAlert(fn AlertFunc) *Notifier {
	n.alert = fn
	return n
}

func (n *Notifier) JobCompleted(ctx context.Context, job core.ExportJob) {
	slog.InfoContext(ctx, "export ready",
		"job_id", job.ID,
		"file", job.FileName,
		"rows", job.RowCount,
		"size", humanize.Bytes(uint64(job.FileSize)),
	)
	n.raise("Export ready", CompletedMessage(job))
}

func (n *Notifier) JobFailed(ctx context.Context, job core.ExportJob) {
	slog.WarnContext(ctx, "export failed",
		"job_id", job.ID,
		"name", job.Name,
		"error", job.Error,
	)
	n.raise("Export failed", FailedMessage(job))
}

func (n *Notifier) raise(title, message string) {
	if n.alert == nil {
		return
	}
	if err := n.alert(title, message); err != nil {
		slog.Debug("desktop notification failed", "error", err)
	}
}

// CompletedMessage is the body shown for a completed job.
func CompletedMessage(job core.ExportJob) string {
	return fmt.Sprintf("%s: %s rows, %s (%s)",
		job.Name,
		humanize.Comma(int64(job.RowCount)),
		humanize.Bytes(uint64(job.FileSize)),
		job.FileName,
	)
}

// FailedMessage is the body shown for a failed job, using the support
// message rather than the raw error.
func FailedMessage(job core.ExportJob) string {
	return fmt.Sprintf("%s: %s", job.Name, core.FormatUserError(errors.New(job.Error)))
}
