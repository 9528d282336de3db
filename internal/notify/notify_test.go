package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

func TestNotifier_Alerts(t *testing.T) {
	type alert struct{ title, message string }
	var got []alert

	n := New(false).WithAlert(func(title, message string) error {
		got = append(got, alert{title, message})
		return nil
	})

	ctx := context.Background()
	n.JobCompleted(ctx, core.ExportJob{ID: "j1", Name: "Donations", RowCount: 1200, FileSize: 2048, FileName: "csr_platform_payments_2024-05-10.xlsx"})
	n.JobFailed(ctx, core.ExportJob{ID: "j2", Name: "Roster", Error: "load records for volunteers: disk on fire"})

	assert.Equal(t, []alert{
		{"Export ready", "Donations: 1,200 rows, 2.0 kB (csr_platform_payments_2024-05-10.xlsx)"},
		{"Export failed", "Roster: " + core.FormatUserError(errors.New("load records for volunteers: disk on fire"))},
	}, got)
}

func TestNotifier_LogOnly(t *testing.T) {
	n := New(false)
	assert.NotPanics(t, func() {
		n.JobCompleted(context.Background(), core.ExportJob{ID: "j1"})
		n.JobFailed(context.Background(), core.ExportJob{ID: "j2"})
	})
}

func TestNotifier_AlertErrorIgnored(t *testing.T) {
	calls := 0
	n := New(false).WithAlert(func(string, string) error {
		calls++
		return errors.New("no notification daemon")
	})
	n.JobCompleted(context.Background(), core.ExportJob{ID: "j1"})
	assert.Equal(t, 1, calls)
}

func TestFailedMessage_UsesSupportCode(t *testing.T) {
	msg := FailedMessage(core.ExportJob{Name: "Audit", Error: "unsupported format: docx"})
	assert.Contains(t, msg, "VAL002")
}
