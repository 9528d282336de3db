package entities

import (
	"encoding/json"
	"time"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

// casePriorities orders priorities for summaries.
var casePriorities = []string{"critical", "high", "medium", "low"}

func init() {
	core.Register(core.EntityDefinition{
		Type:  core.EntityCases,
		Label: "Cases",
		Columns: []core.ColumnDefinition{
			{ID: "id", Label: "ID", Field: "id", Type: core.ColumnString, Required: true},
			{ID: "title", Label: "Title", Field: "title", Type: core.ColumnString, Required: true},
			{ID: "ngo_name", Label: "NGO", Field: "ngo_name", Type: core.ColumnString},
			{ID: "category", Label: "Category", Field: "category", Type: core.ColumnString},
			{ID: "priority", Label: "Priority", Field: "priority", Type: core.ColumnString},
			{ID: "status", Label: "Status", Field: "status", Type: core.ColumnString},
			{ID: "location", Label: "Location", Field: "location", Type: core.ColumnString},
			{ID: "assigned_to", Label: "Assigned To", Field: "assigned_to", Type: core.ColumnString},
			{ID: "amount_requested", Label: "Amount Requested", Field: "amount_requested", Type: core.ColumnCurrency},
			{ID: "amount_raised", Label: "Amount Raised", Field: "amount_raised", Type: core.ColumnCurrency},
			{ID: "tags", Label: "Tags", Field: "tags", Type: core.ColumnString},
			{ID: "opened_at", Label: "Opened", Field: "opened_at", Type: core.ColumnDate},
			{ID: "closed_at", Label: "Closed", Field: "closed_at", Type: core.ColumnDate},
		},
		Filters:        core.FilterBindings{Status: "status", Category: "category", Amount: "amount_requested", Location: "location", Tags: "tags"},
		TimestampField: "opened_at",
		Decode:         decodeCase,
		Adapter: adapter{
			derived: []core.DerivedColumn{
				difference("amount_outstanding", "Outstanding", "amount_requested", "amount_raised", core.ColumnCurrency),
			},
			summary: func(rs []core.Record) []core.Metric {
				out := []core.Metric{
					core.CountRecords("cases", rs),
					count("Open cases", core.CountWhere(rs, "status", "open")+core.CountWhere(rs, "status", "in_progress")),
					sum("Total requested", rs, "amount_requested"),
					sum("Total raised", rs, "amount_raised"),
				}
				for _, p := range casePriorities {
					out = append(out, count("Priority: "+p, core.CountWhere(rs, "priority", p)))
				}
				return out
			},
		},
	})
}

// Case is a beneficiary request handled by an NGO.
type Case struct {
	ID              string
	Title           string
	NGOName         string
	Category        string
	Priority        string
	Status          string
	Location        string
	AssignedTo      string
	AmountRequested *float64
	AmountRaised    *float64
	Labels          []string
	OpenedAt        time.Time
	ClosedAt        time.Time
}

func (c *Case) Entity() core.EntityType { return core.EntityCases }
func (c *Case) Tags() []string          { return c.Labels }
func (c *Case) Timestamp() time.Time    { return c.OpenedAt }

func (c *Case) Field(name string) core.Value {
	switch name {
	case "id":
		return core.OptString(c.ID)
	case "title":
		return core.OptString(c.Title)
	case "ngo_name":
		return core.OptString(c.NGOName)
	case "category":
		return core.OptString(c.Category)
	case "priority":
		return core.OptString(c.Priority)
	case "status":
		return core.OptString(c.Status)
	case "location":
		return core.OptString(c.Location)
	case "assigned_to":
		return core.OptString(c.AssignedTo)
	case "amount_requested":
		return core.OptNumber(c.AmountRequested)
	case "amount_raised":
		return core.OptNumber(c.AmountRaised)
	case "tags":
		return joined(c.Labels)
	case "opened_at":
		return core.Time(c.OpenedAt)
	case "closed_at":
		return core.Time(c.ClosedAt)
	}
	return core.Null
}

type rawCase struct {
	ID              core.Loose `json:"id"`
	MongoID         core.Loose `json:"_id"`
	Title           core.Loose `json:"title"`
	NGOName         core.Loose `json:"ngo_name"`
	NGONameCamel    core.Loose `json:"ngoName"`
	NGO             rawRef     `json:"ngo"`
	Category        core.Loose `json:"category"`
	Priority        core.Loose `json:"priority"`
	Status          core.Loose `json:"status"`
	Location        core.Loose `json:"location"`
	City            core.Loose `json:"city"`
	AssignedTo      core.Loose `json:"assigned_to"`
	AssignedCamel   core.Loose `json:"assignedTo"`
	AmountRequested core.Loose `json:"amount_requested"`
	RequestedCamel  core.Loose `json:"amountRequested"`
	AmountRaised    core.Loose `json:"amount_raised"`
	RaisedCamel     core.Loose `json:"amountRaised"`
	Tags            stringList `json:"tags"`
	OpenedAt        core.Loose `json:"opened_at"`
	OpenedCamel     core.Loose `json:"openedAt"`
	CreatedAt       core.Loose `json:"createdAt"`
	ClosedAt        core.Loose `json:"closed_at"`
	ClosedCamel     core.Loose `json:"closedAt"`
}

func decodeCase(raw json.RawMessage) (core.Record, error) {
	var r rawCase
	if err := decode(core.EntityCases, raw, &r); err != nil {
		return nil, err
	}
	opened := firstDate(r.OpenedAt, r.OpenedCamel, r.CreatedAt)
	return &Case{
		ID:              firstText(r.ID, r.MongoID),
		Title:           r.Title.Text(),
		NGOName:         firstText(r.NGOName, r.NGONameCamel, r.NGO.Name),
		Category:        r.Category.Text(),
		Priority:        NormalizeStatus(r.Priority.Text()),
		Status:          NormalizeStatus(r.Status.Text()),
		Location:        NormalizeCity(firstText(r.Location, r.City)),
		AssignedTo:      firstText(r.AssignedTo, r.AssignedCamel),
		AmountRequested: firstAmount(r.AmountRequested, r.RequestedCamel),
		AmountRaised:    firstAmount(r.AmountRaised, r.RaisedCamel),
		Labels:          r.Tags,
		OpenedAt:        opened,
		ClosedAt:        firstDate(r.ClosedAt, r.ClosedCamel),
	}, nil
}
