package entities

import (
	"encoding/json"
	"time"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

func init() {
	core.Register(core.EntityDefinition{
		Type:  core.EntityNGOs,
		Label: "NGOs",
		Columns: []core.ColumnDefinition{
			{ID: "id", Label: "ID", Field: "id", Type: core.ColumnString, Required: true},
			{ID: "name", Label: "Name", Field: "name", Type: core.ColumnString, Required: true},
			{ID: "registration_number", Label: "Registration No.", Field: "registration_number", Type: core.ColumnString},
			{ID: "category", Label: "Focus Area", Field: "category", Type: core.ColumnString},
			{ID: "status", Label: "Status", Field: "status", Type: core.ColumnString},
			{ID: "city", Label: "City", Field: "city", Type: core.ColumnString},
			{ID: "contact_email", Label: "Email", Field: "contact_email", Type: core.ColumnString},
			{ID: "phone", Label: "Phone", Field: "phone", Type: core.ColumnString},
			{ID: "total_projects", Label: "Projects", Field: "total_projects", Type: core.ColumnNumber},
			{ID: "total_funding", Label: "Funding Received", Field: "total_funding", Type: core.ColumnCurrency},
			{ID: "verified", Label: "Verified", Field: "verified", Type: core.ColumnBoolean},
			{ID: "tags", Label: "Tags", Field: "tags", Type: core.ColumnString},
			{ID: "created_at", Label: "Registered", Field: "created_at", Type: core.ColumnDate},
		},
		Filters:        core.FilterBindings{Status: "status", Category: "category", Amount: "total_funding", Location: "city", Tags: "tags"},
		TimestampField: "created_at",
		Decode:         decodeNGO,
		Adapter: adapter{
			summary: func(rs []core.Record) []core.Metric {
				verified := 0
				for _, r := range rs {
					if v := r.Field("verified"); v.Kind() == core.KindBool && v.Boolean() {
						verified++
					}
				}
				out := []core.Metric{
					core.CountRecords("NGOs", rs),
					count("Verified NGOs", verified),
					sum("Total funding", rs, "total_funding"),
					average("Average projects per NGO", rs, "total_projects"),
				}
				return append(out, core.CountByField(rs, "city", "City")...)
			},
		},
	})
}

// NGO is a registered partner organisation.
type NGO struct {
	ID                 string
	Name               string
	RegistrationNumber string
	Category           string
	Status             string
	City               string
	ContactEmail       string
	Phone              string
	TotalProjects      *float64
	TotalFunding       *float64
	Verified           bool
	Labels             []string
	CreatedAt          time.Time
}

func (n *NGO) Entity() core.EntityType { return core.EntityNGOs }
func (n *NGO) Tags() []string          { return n.Labels }
func (n *NGO) Timestamp() time.Time    { return n.CreatedAt }

func (n *NGO) Field(name string) core.Value {
	switch name {
	case "id":
		return core.OptString(n.ID)
	case "name":
		return core.OptString(n.Name)
	case "registration_number":
		return core.OptString(n.RegistrationNumber)
	case "category":
		return core.OptString(n.Category)
	case "status":
		return core.OptString(n.Status)
	case "city":
		return core.OptString(n.City)
	case "contact_email":
		return core.OptString(n.ContactEmail)
	case "phone":
		return core.OptString(n.Phone)
	case "total_projects":
		return core.OptNumber(n.TotalProjects)
	case "total_funding":
		return core.OptNumber(n.TotalFunding)
	case "verified":
		return core.Bool(n.Verified)
	case "tags":
		return joined(n.Labels)
	case "created_at":
		return core.Time(n.CreatedAt)
	}
	return core.Null
}

type rawNGO struct {
	ID                 core.Loose `json:"id"`
	MongoID            core.Loose `json:"_id"`
	Name               core.Loose `json:"name"`
	OrganizationName   core.Loose `json:"organizationName"`
	RegistrationNumber core.Loose `json:"registration_number"`
	RegistrationCamel  core.Loose `json:"registrationNumber"`
	Category           core.Loose `json:"category"`
	FocusArea          core.Loose `json:"focusArea"`
	Status             core.Loose `json:"status"`
	VerificationStatus core.Loose `json:"verificationStatus"`
	City               core.Loose `json:"city"`
	Email              core.Loose `json:"email"`
	ContactEmail       core.Loose `json:"contact_email"`
	ContactEmailCamel  core.Loose `json:"contactEmail"`
	Phone              core.Loose `json:"phone"`
	TotalProjects      core.Loose `json:"total_projects"`
	TotalProjectsCamel core.Loose `json:"totalProjects"`
	TotalFunding       core.Loose `json:"total_funding"`
	TotalFundingCamel  core.Loose `json:"totalFunding"`
	Verified           core.Loose `json:"verified"`
	IsVerified         core.Loose `json:"isVerified"`
	Tags               stringList `json:"tags"`
	CreatedAt          core.Loose `json:"created_at"`
	CreatedCamel       core.Loose `json:"createdAt"`
}

func decodeNGO(raw json.RawMessage) (core.Record, error) {
	var r rawNGO
	if err := decode(core.EntityNGOs, raw, &r); err != nil {
		return nil, err
	}
	status := NormalizeStatus(firstText(r.VerificationStatus, r.Status))
	verified := r.Verified.Bool() || r.IsVerified.Bool()
	if !r.Verified.Valid() && !r.IsVerified.Valid() {
		verified = status == "verified"
	}
	return &NGO{
		ID:                 firstText(r.ID, r.MongoID),
		Name:               firstText(r.Name, r.OrganizationName),
		RegistrationNumber: firstText(r.RegistrationNumber, r.RegistrationCamel),
		Category:           firstText(r.Category, r.FocusArea),
		Status:             status,
		City:               NormalizeCity(r.City.Text()),
		ContactEmail:       NormalizeEmail(firstText(r.ContactEmail, r.ContactEmailCamel, r.Email)),
		Phone:              NormalizePhone(r.Phone.Text()),
		TotalProjects:      firstAmount(r.TotalProjects, r.TotalProjectsCamel),
		TotalFunding:       firstAmount(r.TotalFunding, r.TotalFundingCamel),
		Verified:           verified,
		Labels:             r.Tags,
		CreatedAt:          firstDate(r.CreatedAt, r.CreatedCamel),
	}, nil
}
