package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/CSRExport/internal/config"
	"github.com/JonMunkholm/CSRExport/internal/core"
)

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{}
	cfg.Store.Driver = driver
	cfg.Store.SQLitePath = filepath.Join(root, "history.db")
	cfg.Export.DataDir = filepath.Join(root, "data")
	cfg.Export.DownloadDir = filepath.Join(root, "downloads")
	cfg.Export.Namespace = "test"
	cfg.Export.MaxConcurrent = 1

	require.NoError(t, os.MkdirAll(cfg.Export.DataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Export.DataDir, "ngos.json"),
		[]byte(`{"data":[{"_id":"n1","name":"Hope Foundation","city":"lahore","status":"verified"}]}`), 0o644))
	return cfg
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), config.StoreConfig{Driver: "etcd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd")
}

func TestOpen_ExportsAndPersists(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "sqlite")

	a, err := Open(ctx, cfg, Options{DisableNotify: true})
	require.NoError(t, err)

	job, err := a.Service.Export(ctx, "NGOs", core.ExportConfig{
		Format:         core.FormatJSON,
		EntityType:     core.EntityNGOs,
		IncludeColumns: []string{"name", "city"},
	})
	require.NoError(t, err)
	require.Equal(t, core.JobCompleted, job.Status, job.Error)
	assert.Equal(t, 1, job.RowCount)
	assert.FileExists(t, filepath.Join(cfg.Export.DownloadDir, job.FileName))
	require.NoError(t, a.Close(ctx))

	reopened, err := Open(ctx, cfg, Options{DisableNotify: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close(ctx) })

	jobs := reopened.Service.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)
	assert.Equal(t, core.JobCompleted, jobs[0].Status)
}

func TestOpen_FormatsRegistered(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, testConfig(t, "memory"), Options{DownloadDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(ctx) })

	assert.Equal(t, core.Formats, core.RendererFormats())
	assert.Len(t, a.Service.Entities(), len(core.EntityTypes))
}
