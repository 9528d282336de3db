package entities

import (
	"encoding/json"
	"time"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

func init() {
	core.Register(core.EntityDefinition{
		Type:  core.EntityOpportunities,
		Label: "Opportunities",
		Columns: []core.ColumnDefinition{
			{ID: "id", Label: "ID", Field: "id", Type: core.ColumnString, Required: true},
			{ID: "title", Label: "Title", Field: "title", Type: core.ColumnString, Required: true},
			{ID: "ngo_name", Label: "NGO", Field: "ngo_name", Type: core.ColumnString},
			{ID: "category", Label: "Category", Field: "category", Type: core.ColumnString},
			{ID: "status", Label: "Status", Field: "status", Type: core.ColumnString},
			{ID: "location", Label: "Location", Field: "location", Type: core.ColumnString},
			{ID: "skills_required", Label: "Skills Required", Field: "skills_required", Type: core.ColumnString},
			{ID: "slots", Label: "Slots", Field: "slots", Type: core.ColumnNumber},
			{ID: "filled", Label: "Filled", Field: "filled", Type: core.ColumnNumber},
			{ID: "remote", Label: "Remote", Field: "remote", Type: core.ColumnBoolean},
			{ID: "start_date", Label: "Start Date", Field: "start_date", Type: core.ColumnDate},
			{ID: "end_date", Label: "End Date", Field: "end_date", Type: core.ColumnDate},
		},
		Filters:        core.FilterBindings{Status: "status", Category: "category", Location: "location", Tags: "skills_required"},
		TimestampField: "start_date",
		Decode:         decodeOpportunity,
		Adapter: adapter{
			derived: []core.DerivedColumn{
				difference("open_slots", "Open Slots", "slots", "filled", core.ColumnNumber),
			},
			summary: func(rs []core.Record) []core.Metric {
				return []core.Metric{
					core.CountRecords("opportunities", rs),
					count("Open opportunities", core.CountWhere(rs, "status", "open")),
					sum("Total slots", rs, "slots"),
					sum("Filled slots", rs, "filled"),
				}
			},
		},
	})
}

// Opportunity is a volunteering opening posted by an NGO.
type Opportunity struct {
	ID             string
	Title          string
	NGOName        string
	Category       string
	Status         string
	Location       string
	SkillsRequired []string
	Slots          *float64
	Filled         *float64
	Remote         bool
	StartDate      time.Time
	EndDate        time.Time
}

func (o *Opportunity) Entity() core.EntityType { return core.EntityOpportunities }
func (o *Opportunity) Tags() []string          { return o.SkillsRequired }
func (o *Opportunity) Timestamp() time.Time    { return o.StartDate }

func (o *Opportunity) Field(name string) core.Value {
	switch name {
	case "id":
		return core.OptString(o.ID)
	case "title":
		return core.OptString(o.Title)
	case "ngo_name":
		return core.OptString(o.NGOName)
	case "category":
		return core.OptString(o.Category)
	case "status":
		return core.OptString(o.Status)
	case "location":
		return core.OptString(o.Location)
	case "skills_required":
		return joined(o.SkillsRequired)
	case "slots":
		return core.OptNumber(o.Slots)
	case "filled":
		return core.OptNumber(o.Filled)
	case "remote":
		return core.Bool(o.Remote)
	case "start_date":
		return core.Time(o.StartDate)
	case "end_date":
		return core.Time(o.EndDate)
	}
	return core.Null
}

type rawOpportunity struct {
	ID             core.Loose `json:"id"`
	MongoID        core.Loose `json:"_id"`
	Title          core.Loose `json:"title"`
	NGOName        core.Loose `json:"ngo_name"`
	NGONameCamel   core.Loose `json:"ngoName"`
	NGO            rawRef     `json:"ngo"`
	Category       core.Loose `json:"category"`
	Status         core.Loose `json:"status"`
	Location       core.Loose `json:"location"`
	SkillsRequired stringList `json:"skills_required"`
	SkillsCamel    stringList `json:"skillsRequired"`
	Slots          core.Loose `json:"slots"`
	TotalSlots     core.Loose `json:"totalSlots"`
	Filled         core.Loose `json:"filled"`
	FilledSlots    core.Loose `json:"filledSlots"`
	Remote         core.Loose `json:"remote"`
	IsRemote       core.Loose `json:"isRemote"`
	StartDate      core.Loose `json:"start_date"`
	StartCamel     core.Loose `json:"startDate"`
	EndDate        core.Loose `json:"end_date"`
	EndCamel       core.Loose `json:"endDate"`
}

func decodeOpportunity(raw json.RawMessage) (core.Record, error) {
	var r rawOpportunity
	if err := decode(core.EntityOpportunities, raw, &r); err != nil {
		return nil, err
	}
	return &Opportunity{
		ID:             firstText(r.ID, r.MongoID),
		Title:          r.Title.Text(),
		NGOName:        firstText(r.NGOName, r.NGONameCamel, r.NGO.Name),
		Category:       r.Category.Text(),
		Status:         NormalizeStatus(r.Status.Text()),
		Location:       NormalizeCity(r.Location.Text()),
		SkillsRequired: firstList(r.SkillsRequired, r.SkillsCamel),
		Slots:          firstAmount(r.Slots, r.TotalSlots),
		Filled:         firstAmount(r.Filled, r.FilledSlots),
		Remote:         r.Remote.Bool() || r.IsRemote.Bool(),
		StartDate:      firstDate(r.StartDate, r.StartCamel),
		EndDate:        firstDate(r.EndDate, r.EndCamel),
	}, nil
}
