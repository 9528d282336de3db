package entities

import (
	"encoding/json"
	"time"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

func init() {
	core.Register(core.EntityDefinition{
		Type:  core.EntityUsers,
		Label: "Users",
		Columns: []core.ColumnDefinition{
			{ID: "id", Label: "ID", Field: "id", Type: core.ColumnString, Required: true},
			{ID: "name", Label: "Name", Field: "name", Type: core.ColumnString, Required: true},
			{ID: "email", Label: "Email", Field: "email", Type: core.ColumnString},
			{ID: "role", Label: "Role", Field: "role", Type: core.ColumnString},
			{ID: "status", Label: "Status", Field: "status", Type: core.ColumnString},
			{ID: "company", Label: "Company", Field: "company", Type: core.ColumnString},
			{ID: "city", Label: "City", Field: "city", Type: core.ColumnString},
			{ID: "verified", Label: "Verified", Field: "verified", Type: core.ColumnBoolean},
			{ID: "last_login", Label: "Last Login", Field: "last_login", Type: core.ColumnDate},
			{ID: "created_at", Label: "Created", Field: "created_at", Type: core.ColumnDate},
		},
		Filters:        core.FilterBindings{Status: "status", Category: "role", Location: "city"},
		TimestampField: "created_at",
		Decode:         decodeUser,
		Adapter: adapter{
			summary: func(rs []core.Record) []core.Metric {
				out := []core.Metric{
					core.CountRecords("users", rs),
					count("Active users", core.CountWhere(rs, "status", "active")),
				}
				return append(out, core.CountByField(rs, "role", "Role")...)
			},
		},
	})
}

// User is a platform account: admin, corporate, NGO staff or volunteer.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      string
	Status    string
	Company   string
	City      string
	Verified  bool
	LastLogin time.Time
	CreatedAt time.Time
}

func (u *User) Entity() core.EntityType { return core.EntityUsers }
func (u *User) Tags() []string          { return nil }
func (u *User) Timestamp() time.Time    { return u.CreatedAt }

func (u *User) Field(name string) core.Value {
	switch name {
	case "id":
		return core.OptString(u.ID)
	case "name":
		return core.OptString(u.Name)
	case "email":
		return core.OptString(u.Email)
	case "role":
		return core.OptString(u.Role)
	case "status":
		return core.OptString(u.Status)
	case "company":
		return core.OptString(u.Company)
	case "city":
		return core.OptString(u.City)
	case "verified":
		return core.Bool(u.Verified)
	case "last_login":
		return core.Time(u.LastLogin)
	case "created_at":
		return core.Time(u.CreatedAt)
	}
	return core.Null
}

type rawUser struct {
	ID              core.Loose `json:"id"`
	MongoID         core.Loose `json:"_id"`
	Name            core.Loose `json:"name"`
	FirstName       core.Loose `json:"firstName"`
	LastName        core.Loose `json:"lastName"`
	Email           core.Loose `json:"email"`
	Role            core.Loose `json:"role"`
	Status          core.Loose `json:"status"`
	Company         core.Loose `json:"company"`
	CompanyName     core.Loose `json:"companyName"`
	City            core.Loose `json:"city"`
	Verified        core.Loose `json:"verified"`
	IsEmailVerified core.Loose `json:"isEmailVerified"`
	LastLogin       core.Loose `json:"last_login"`
	LastLoginCamel  core.Loose `json:"lastLogin"`
	CreatedAt       core.Loose `json:"created_at"`
	CreatedCamel    core.Loose `json:"createdAt"`
}

func decodeUser(raw json.RawMessage) (core.Record, error) {
	var r rawUser
	if err := decode(core.EntityUsers, raw, &r); err != nil {
		return nil, err
	}
	name := r.Name.Text()
	if name == "" {
		name = firstText(r.FirstName)
		if last := r.LastName.Text(); last != "" {
			if name != "" {
				name += " "
			}
			name += last
		}
	}
	return &User{
		ID:        firstText(r.ID, r.MongoID),
		Name:      name,
		Email:     NormalizeEmail(r.Email.Text()),
		Role:      NormalizeStatus(r.Role.Text()),
		Status:    NormalizeStatus(r.Status.Text()),
		Company:   firstText(r.Company, r.CompanyName),
		City:      NormalizeCity(r.City.Text()),
		Verified:  r.Verified.Bool() || r.IsEmailVerified.Bool(),
		LastLogin: firstDate(r.LastLogin, r.LastLoginCamel),
		CreatedAt: firstDate(r.CreatedAt, r.CreatedCamel),
	}, nil
}
