package core

import (
	"context"
	"sync"
	"time"
)

// fakeRecord is a project-like record backed by a field map.
type fakeRecord struct {
	fields map[string]Value
	tags   []string
	at     time.Time
}

func (r *fakeRecord) Entity() EntityType { return EntityProjects }
func (r *fakeRecord) Tags() []string     { return r.tags }
func (r *fakeRecord) Timestamp() time.Time {
	return r.at
}

func (r *fakeRecord) Field(name string) Value {
	if v, ok := r.fields[name]; ok {
		return v
	}
	return Null
}

func project(title, status, category, city string, budget float64, at time.Time, tags ...string) *fakeRecord {
	return &fakeRecord{
		fields: map[string]Value{
			"title":    String(title),
			"status":   String(status),
			"category": String(category),
			"location": String(city),
			"budget":   Number(budget),
			"start":    Time(at),
		},
		tags: tags,
		at:   at,
	}
}

var projectDef = EntityDefinition{
	Type:  EntityProjects,
	Label: "Projects",
	Columns: []ColumnDefinition{
		{ID: "title", Label: "Title", Field: "title", Type: ColumnString, Required: true},
		{ID: "status", Label: "Status", Field: "status", Type: ColumnString},
		{ID: "category", Label: "Category", Field: "category", Type: ColumnString},
		{ID: "location", Label: "Location", Field: "location", Type: ColumnString},
		{ID: "budget", Label: "Budget", Field: "budget", Type: ColumnCurrency},
		{ID: "start_date", Label: "Start Date", Field: "start", Type: ColumnDate},
		{ID: "tags", Label: "Tags", Field: "tags", Type: ColumnString},
	},
	Filters:        FilterBindings{Status: "status", Category: "category", Amount: "budget", Location: "location", Tags: "tags"},
	TimestampField: "start_date",
}

// caseDef supports only the status dimension.
var caseDef = EntityDefinition{
	Type:  EntityCases,
	Label: "Cases",
	Columns: []ColumnDefinition{
		{ID: "title", Label: "Title", Field: "title", Type: ColumnString, Required: true},
		{ID: "status", Label: "Status", Field: "status", Type: ColumnString},
		{ID: "opened_at", Label: "Opened", Field: "start", Type: ColumnDate},
	},
	Filters:        FilterBindings{Status: "status"},
	TimestampField: "opened_at",
}

// testRenderHook lets each test control what the registered builders do.
var (
	testRenderMu   sync.Mutex
	testRenderHook func(ctx context.Context, in RenderInput) ([]byte, error)
)

func setRenderHook(fn func(ctx context.Context, in RenderInput) ([]byte, error)) {
	testRenderMu.Lock()
	defer testRenderMu.Unlock()
	testRenderHook = fn
}

func hookedRender(ctx context.Context, in RenderInput) ([]byte, error) {
	testRenderMu.Lock()
	fn := testRenderHook
	testRenderMu.Unlock()
	if fn == nil {
		out := []byte{}
		err := in.EachChunk(ctx, func(start, end int) error {
			for _, row := range in.Rows[start:end] {
				for i, v := range row {
					if i > 0 {
						out = append(out, ',')
					}
					out = append(out, v.Text()...)
				}
				out = append(out, '\n')
			}
			return nil
		})
		return out, err
	}
	return fn(ctx, in)
}

func init() {
	Register(projectDef)
	Register(caseDef)
	for _, f := range Formats {
		RegisterRenderer(RenderFunc{F: f, Fn: hookedRender})
	}
}

// fakeDownloader records every artifact it receives.
type fakeDownloader struct {
	mu        sync.Mutex
	artifacts []Artifact
	err       error
}

func (d *fakeDownloader) Download(_ context.Context, a Artifact) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.artifacts = append(d.artifacts, a)
	return nil
}

func (d *fakeDownloader) received() []Artifact {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Artifact(nil), d.artifacts...)
}

// staticProvider serves a fixed record set for projects.
type staticProvider []Record

func (p staticProvider) Records(_ context.Context, _ EntityType) ([]Record, error) {
	return p, nil
}

// fakeNotifier counts settled-job callbacks.
type fakeNotifier struct {
	mu        sync.Mutex
	completed []ExportJob
	failed    []ExportJob
}

func (n *fakeNotifier) JobCompleted(_ context.Context, job ExportJob) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, job)
}

func (n *fakeNotifier) JobFailed(_ context.Context, job ExportJob) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, job)
}

func (n *fakeNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.completed), len(n.failed)
}
