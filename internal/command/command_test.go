package command

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/CSRExport/internal/config"
)

const payments = `[
	{"_id":"p1","reference":"PAY-1","payer":"Acme","method":"bank","status":"completed","amount":1500,"fee":30,"paid_at":"2026-03-02"},
	{"_id":"p2","reference":"PAY-2","payer":"Globex","method":"card","status":"pending","amount":"PKR 250","paid_at":"2026-03-09"},
	{"_id":"p3","reference":"PAY-3","payer":"Initech","method":"bank","status":"completed","amount":4200,"fee":80,"paid_at":"2026-04-11"}
]`

type fixture struct {
	root string
	load Loader
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	data := filepath.Join(root, "data")
	require.NoError(t, os.MkdirAll(data, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(data, "payments.json"), []byte(payments), 0o644))

	cfg := &config.Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = filepath.Join(root, "history.db")
	cfg.Export.DataDir = data
	cfg.Export.DownloadDir = filepath.Join(root, "downloads")
	cfg.Export.Namespace = "cli"
	cfg.Logging.Format = "text"

	return fixture{root: root, load: func() (*config.Config, error) {
		c := *cfg
		return &c, nil
	}}
}

func (f fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand(f.load)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestExport_WritesFile(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "export", "--entity", "payments", "--format", "json", "--status", "completed", "--sort", "amount", "--order", "desc")
	require.NoError(t, err)
	assert.Contains(t, out, "Payments export: 2 rows")

	files, err := filepath.Glob(filepath.Join(f.root, "downloads", "cli_payments_*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	body, err := os.ReadFile(files[0])
	require.NoError(t, err)
	var doc struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &doc))
	require.Len(t, doc.Data, 2)
	assert.Equal(t, "PAY-3", doc.Data[0]["reference"])
}

func TestExport_OutputDirAndDates(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(f.root, "elsewhere")

	out, err := f.run(t, "export", "-e", "payments", "-c", "reference,amount", "--from", "2026-03-01", "--to", "2026-03-31", "-o", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 rows")
	assert.Contains(t, out, dir)
}

func TestExport_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no entity or template", []string{"export"}, "template"},
		{"both entity and template", []string{"export", "-e", "payments", "-t", "audit_trail"}, "template"},
		{"bad date", []string{"export", "-e", "payments", "--from", "03/01/2026"}, "--from"},
		{"unknown column", []string{"export", "-e", "payments", "-c", "donor"}, "donor"},
		{"unknown template", []string{"export", "-t", "missing"}, "missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newFixture(t).run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestJobs_ListDeleteClear(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "jobs", "list")
	require.NoError(t, err)
	assert.Equal(t, "No export jobs.\n", out)

	_, err = f.run(t, "export", "-e", "payments")
	require.NoError(t, err)
	_, err = f.run(t, "export", "-e", "payments", "-f", "xlsx")
	require.NoError(t, err)

	out, err = f.run(t, "jobs", "list", "--status", "completed")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], "xlsx")

	id := strings.Fields(lines[2])[0]
	out, err = f.run(t, "jobs", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, id)

	_, err = f.run(t, "jobs", "delete", id)
	require.Error(t, err)

	out, err = f.run(t, "jobs", "clear")
	require.NoError(t, err)
	assert.Equal(t, "Cleared 1 jobs\n", out)
}

func TestCatalogCommands(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "templates")
	require.NoError(t, err)
	assert.Contains(t, out, "monthly_donations")

	out, err = f.run(t, "entities")
	require.NoError(t, err)
	assert.Contains(t, out, "payments")
	assert.Contains(t, out, "audit_logs")

	out, err = f.run(t, "entities", "payments")
	require.NoError(t, err)
	assert.Contains(t, out, "paid_at")
	assert.Contains(t, out, "net_amount")

	_, err = f.run(t, "entities", "donors")
	require.Error(t, err)
}
