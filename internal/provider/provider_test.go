package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/CSRExport/internal/core"
	_ "github.com/JonMunkholm/CSRExport/internal/core/entities"
)

func writeSource(t *testing.T, dir string, entity core.EntityType, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, string(entity)+".json"), []byte(body), 0o644))
}

func TestDirectory_Records(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "array root",
			body: `[{"id":"p1","title":"Clean Water","budget":5000},{"id":"p2","title":"School Meals","budget":"PKR 12,000"}]`,
			want: []string{"Clean Water", "School Meals"},
		},
		{
			name: "data envelope",
			body: `{"success":true,"data":[{"_id":"p3","name":"Flood Relief"}]}`,
			want: []string{"Flood Relief"},
		},
		{
			name: "empty array",
			body: `[]`,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeSource(t, dir, core.EntityProjects, tt.body)

			records, err := NewDirectory(dir).Records(context.Background(), core.EntityProjects)
			require.NoError(t, err)

			titles := make([]string, 0, len(records))
			for _, r := range records {
				assert.Equal(t, core.EntityProjects, r.Entity())
				titles = append(titles, r.Field("title").Str())
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestDirectory_AmountsParsed(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, core.EntityProjects, `[{"id":"p2","title":"School Meals","budget":"PKR 12,000"}]`)

	records, err := NewDirectory(dir).Records(context.Background(), core.EntityProjects)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 12000.0, records[0].Field("budget").Num())
}

func TestDirectory_MissingFile(t *testing.T) {
	records, err := NewDirectory(t.TempDir()).Records(context.Background(), core.EntityVolunteers)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDirectory_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `[{"id":`},
		{"object without data", `{"items":[]}`},
		{"scalar element", `[1, 2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeSource(t, dir, core.EntityProjects, tt.body)

			_, err := NewDirectory(dir).Records(context.Background(), core.EntityProjects)
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
		})
	}
}

func TestDirectory_UnknownEntity(t *testing.T) {
	_, err := NewDirectory(t.TempDir()).Records(context.Background(), core.EntityType("donors"))
	assert.ErrorContains(t, err, "unknown entity type")
}

func TestDirectory_CustomPath(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, core.EntityProjects, `{"result":{"items":[{"id":"p1","title":"Solar"}]}}`)

	p := &Directory{Dir: dir, Path: "result.items"}
	records, err := p.Records(context.Background(), core.EntityProjects)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Solar", records[0].Field("title").Str())
}

func TestDecode_Cancelled(t *testing.T) {
	def, ok := core.Lookup(core.EntityProjects)
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Decode(ctx, def, []byte(`[{"id":"p1"}]`), "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatic(t *testing.T) {
	def, _ := core.Lookup(core.EntityProjects)
	rec, err := def.Decode([]byte(`{"id":"p1","title":"Solar"}`))
	require.NoError(t, err)

	s := Static{core.EntityProjects: {rec}}
	got, err := s.Records(context.Background(), core.EntityProjects)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.Records(context.Background(), core.EntityNGOs)
	require.NoError(t, err)
	assert.Empty(t, got)
}
