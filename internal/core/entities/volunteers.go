package entities

import (
	"encoding/json"
	"time"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

func init() {
	core.Register(core.EntityDefinition{
		Type:  core.EntityVolunteers,
		Label: "Volunteers",
		Columns: []core.ColumnDefinition{
			{ID: "id", Label: "ID", Field: "id", Type: core.ColumnString, Required: true},
			{ID: "name", Label: "Name", Field: "name", Type: core.ColumnString, Required: true},
			{ID: "email", Label: "Email", Field: "email", Type: core.ColumnString},
			{ID: "phone", Label: "Phone", Field: "phone", Type: core.ColumnString},
			{ID: "city", Label: "City", Field: "city", Type: core.ColumnString},
			{ID: "skills", Label: "Skills", Field: "skills", Type: core.ColumnString},
			{ID: "status", Label: "Status", Field: "status", Type: core.ColumnString},
			{ID: "hours_logged", Label: "Hours Logged", Field: "hours_logged", Type: core.ColumnNumber},
			{ID: "opportunities_joined", Label: "Opportunities", Field: "opportunities_joined", Type: core.ColumnNumber},
			{ID: "joined_at", Label: "Joined", Field: "joined_at", Type: core.ColumnDate},
		},
		Filters:        core.FilterBindings{Status: "status", Amount: "hours_logged", Location: "city", Tags: "skills"},
		TimestampField: "joined_at",
		Decode:         decodeVolunteer,
		Adapter: adapter{
			summary: func(rs []core.Record) []core.Metric {
				return []core.Metric{
					core.CountRecords("volunteers", rs),
					count("Active volunteers", core.CountWhere(rs, "status", "active")),
					sum("Total hours", rs, "hours_logged"),
					average("Average hours", rs, "hours_logged"),
				}
			},
		},
	})
}

// Volunteer is an individual signed up for volunteering opportunities.
// Skills double as tags for tag filters.
type Volunteer struct {
	ID                  string
	Name                string
	Email               string
	Phone               string
	City                string
	Skills              []string
	Status              string
	HoursLogged         *float64
	OpportunitiesJoined *float64
	JoinedAt            time.Time
}

func (v *Volunteer) Entity() core.EntityType { return core.EntityVolunteers }
func (v *Volunteer) Tags() []string          { return v.Skills }
func (v *Volunteer) Timestamp() time.Time    { return v.JoinedAt }

func (v *Volunteer) Field(name string) core.Value {
	switch name {
	case "id":
		return core.OptString(v.ID)
	case "name":
		return core.OptString(v.Name)
	case "email":
		return core.OptString(v.Email)
	case "phone":
		return core.OptString(v.Phone)
	case "city":
		return core.OptString(v.City)
	case "skills":
		return joined(v.Skills)
	case "status":
		return core.OptString(v.Status)
	case "hours_logged":
		return core.OptNumber(v.HoursLogged)
	case "opportunities_joined":
		return core.OptNumber(v.OpportunitiesJoined)
	case "joined_at":
		return core.Time(v.JoinedAt)
	}
	return core.Null
}

type rawVolunteer struct {
	ID                  core.Loose `json:"id"`
	MongoID             core.Loose `json:"_id"`
	Name                core.Loose `json:"name"`
	FullName            core.Loose `json:"fullName"`
	Email               core.Loose `json:"email"`
	Phone               core.Loose `json:"phone"`
	City                core.Loose `json:"city"`
	Skills              stringList `json:"skills"`
	Status              core.Loose `json:"status"`
	HoursLogged         core.Loose `json:"hours_logged"`
	HoursLoggedCamel    core.Loose `json:"hoursLogged"`
	TotalHours          core.Loose `json:"totalHours"`
	OpportunitiesJoined core.Loose `json:"opportunities_joined"`
	JoinedCountCamel    core.Loose `json:"opportunitiesJoined"`
	JoinedAt            core.Loose `json:"joined_at"`
	JoinedAtCamel       core.Loose `json:"joinedAt"`
	CreatedAt           core.Loose `json:"createdAt"`
}

func decodeVolunteer(raw json.RawMessage) (core.Record, error) {
	var r rawVolunteer
	if err := decode(core.EntityVolunteers, raw, &r); err != nil {
		return nil, err
	}
	joinedAt := firstDate(r.JoinedAt, r.JoinedAtCamel, r.CreatedAt)
	return &Volunteer{
		ID:                  firstText(r.ID, r.MongoID),
		Name:                firstText(r.Name, r.FullName),
		Email:               NormalizeEmail(r.Email.Text()),
		Phone:               NormalizePhone(r.Phone.Text()),
		City:                NormalizeCity(r.City.Text()),
		Skills:              r.Skills,
		Status:              NormalizeStatus(r.Status.Text()),
		HoursLogged:         firstAmount(r.HoursLogged, r.HoursLoggedCamel, r.TotalHours),
		OpportunitiesJoined: firstAmount(r.OpportunitiesJoined, r.JoinedCountCamel),
		JoinedAt:            joinedAt,
	}, nil
}
