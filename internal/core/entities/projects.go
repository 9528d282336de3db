package entities

import (
	"encoding/json"
	"time"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

func init() {
	core.Register(core.EntityDefinition{
		Type:  core.EntityProjects,
		Label: "Projects",
		Columns: []core.ColumnDefinition{
			{ID: "id", Label: "ID", Field: "id", Type: core.ColumnString, Required: true},
			{ID: "title", Label: "Title", Field: "title", Type: core.ColumnString, Required: true},
			{ID: "ngo_name", Label: "NGO", Field: "ngo_name", Type: core.ColumnString},
			{ID: "category", Label: "Category", Field: "category", Type: core.ColumnString},
			{ID: "status", Label: "Status", Field: "status", Type: core.ColumnString},
			{ID: "location", Label: "Location", Field: "location", Type: core.ColumnString},
			{ID: "budget", Label: "Budget", Field: "budget", Type: core.ColumnCurrency},
			{ID: "spent", Label: "Spent", Field: "spent", Type: core.ColumnCurrency},
			{ID: "beneficiaries", Label: "Beneficiaries", Field: "beneficiaries", Type: core.ColumnNumber},
			{ID: "start_date", Label: "Start Date", Field: "start_date", Type: core.ColumnDate},
			{ID: "end_date", Label: "End Date", Field: "end_date", Type: core.ColumnDate},
			{ID: "tags", Label: "Tags", Field: "tags", Type: core.ColumnString},
			{ID: "created_at", Label: "Created", Field: "created_at", Type: core.ColumnDate},
		},
		Filters:        core.FilterBindings{Status: "status", Category: "category", Amount: "budget", Location: "location", Tags: "tags"},
		TimestampField: "created_at",
		Decode:         decodeProject,
		Adapter: adapter{
			derived: []core.DerivedColumn{
				difference("remaining", "Remaining", "budget", "spent", core.ColumnCurrency),
			},
			summary: func(rs []core.Record) []core.Metric {
				return []core.Metric{
					core.CountRecords("projects", rs),
					count("Active projects", core.CountWhere(rs, "status", "active")),
					count("Completed projects", core.CountWhere(rs, "status", "completed")),
					sum("Total budget", rs, "budget"),
					sum("Total spent", rs, "spent"),
					average("Average budget", rs, "budget"),
					sum("Total beneficiaries", rs, "beneficiaries"),
				}
			},
		},
	})
}

// Project is a CSR-funded project run by an NGO.
type Project struct {
	ID            string
	Title         string
	NGOName       string
	Category      string
	Status        string
	Location      string
	Budget        *float64
	Spent         *float64
	Beneficiaries *float64
	StartDate     time.Time
	EndDate       time.Time
	Labels        []string
	CreatedAt     time.Time
}

func (p *Project) Entity() core.EntityType { return core.EntityProjects }
func (p *Project) Tags() []string          { return p.Labels }
func (p *Project) Timestamp() time.Time    { return p.CreatedAt }

func (p *Project) Field(name string) core.Value {
	switch name {
	case "id":
		return core.OptString(p.ID)
	case "title":
		return core.OptString(p.Title)
	case "ngo_name":
		return core.OptString(p.NGOName)
	case "category":
		return core.OptString(p.Category)
	case "status":
		return core.OptString(p.Status)
	case "location":
		return core.OptString(p.Location)
	case "budget":
		return core.OptNumber(p.Budget)
	case "spent":
		return core.OptNumber(p.Spent)
	case "beneficiaries":
		return core.OptNumber(p.Beneficiaries)
	case "start_date":
		return core.Time(p.StartDate)
	case "end_date":
		return core.Time(p.EndDate)
	case "tags":
		return joined(p.Labels)
	case "created_at":
		return core.Time(p.CreatedAt)
	}
	return core.Null
}

type rawProject struct {
	ID            core.Loose `json:"id"`
	MongoID       core.Loose `json:"_id"`
	Title         core.Loose `json:"title"`
	Name          core.Loose `json:"name"`
	NGOName       core.Loose `json:"ngo_name"`
	NGONameCamel  core.Loose `json:"ngoName"`
	NGO           rawRef     `json:"ngo"`
	Category      core.Loose `json:"category"`
	Status        core.Loose `json:"status"`
	Location      core.Loose `json:"location"`
	City          core.Loose `json:"city"`
	Budget        core.Loose `json:"budget"`
	Spent         core.Loose `json:"spent"`
	AmountSpent   core.Loose `json:"amountSpent"`
	Beneficiaries core.Loose `json:"beneficiaries"`
	StartDate     core.Loose `json:"start_date"`
	StartCamel    core.Loose `json:"startDate"`
	EndDate       core.Loose `json:"end_date"`
	EndCamel      core.Loose `json:"endDate"`
	Tags          stringList `json:"tags"`
	CreatedAt     core.Loose `json:"created_at"`
	CreatedCamel  core.Loose `json:"createdAt"`
}

func decodeProject(raw json.RawMessage) (core.Record, error) {
	var r rawProject
	if err := decode(core.EntityProjects, raw, &r); err != nil {
		return nil, err
	}
	return &Project{
		ID:            firstText(r.ID, r.MongoID),
		Title:         firstText(r.Title, r.Name),
		NGOName:       firstText(r.NGOName, r.NGONameCamel, r.NGO.Name),
		Category:      r.Category.Text(),
		Status:        NormalizeStatus(r.Status.Text()),
		Location:      NormalizeCity(firstText(r.Location, r.City)),
		Budget:        r.Budget.Amount(),
		Spent:         firstAmount(r.Spent, r.AmountSpent),
		Beneficiaries: r.Beneficiaries.Amount(),
		StartDate:     firstDate(r.StartDate, r.StartCamel),
		EndDate:       firstDate(r.EndDate, r.EndCamel),
		Labels:        r.Tags,
		CreatedAt:     firstDate(r.CreatedAt, r.CreatedCamel),
	}, nil
}
