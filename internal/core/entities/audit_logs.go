package entities

import (
	"encoding/json"
	"time"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

func init() {
	core.Register(core.EntityDefinition{
		Type:  core.EntityAuditLogs,
		Label: "Audit Logs",
		Columns: []core.ColumnDefinition{
			{ID: "id", Label: "ID", Field: "id", Type: core.ColumnString, Required: true},
			{ID: "created_at", Label: "Timestamp", Field: "created_at", Type: core.ColumnDate, Required: true},
			{ID: "actor", Label: "Actor", Field: "actor", Type: core.ColumnString},
			{ID: "actor_role", Label: "Role", Field: "actor_role", Type: core.ColumnString},
			{ID: "action", Label: "Action", Field: "action", Type: core.ColumnString},
			{ID: "entity", Label: "Entity", Field: "entity", Type: core.ColumnString},
			{ID: "entity_id", Label: "Entity ID", Field: "entity_id", Type: core.ColumnString},
			{ID: "severity", Label: "Severity", Field: "severity", Type: core.ColumnString},
			{ID: "ip_address", Label: "IP Address", Field: "ip_address", Type: core.ColumnString},
			{ID: "details", Label: "Details", Field: "details", Type: core.ColumnString},
		},
		Filters:        core.FilterBindings{Status: "severity", Category: "action"},
		TimestampField: "created_at",
		Decode:         decodeAuditLog,
		Adapter: adapter{
			summary: func(rs []core.Record) []core.Metric {
				out := []core.Metric{core.CountRecords("entries", rs)}
				return append(out, core.CountByField(rs, "severity", "Severity")...)
			},
		},
	})
}

// AuditLog is one recorded administrative action.
type AuditLog struct {
	ID        string
	CreatedAt time.Time
	Actor     string
	ActorRole string
	Action    string
	Target    string
	TargetID  string
	Severity  string
	IPAddress string
	Details   string
}

func (a *AuditLog) Entity() core.EntityType { return core.EntityAuditLogs }
func (a *AuditLog) Tags() []string          { return nil }
func (a *AuditLog) Timestamp() time.Time    { return a.CreatedAt }

func (a *AuditLog) Field(name string) core.Value {
	switch name {
	case "id":
		return core.OptString(a.ID)
	case "created_at":
		return core.Time(a.CreatedAt)
	case "actor":
		return core.OptString(a.Actor)
	case "actor_role":
		return core.OptString(a.ActorRole)
	case "action":
		return core.OptString(a.Action)
	case "entity":
		return core.OptString(a.Target)
	case "entity_id":
		return core.OptString(a.TargetID)
	case "severity":
		return core.OptString(a.Severity)
	case "ip_address":
		return core.OptString(a.IPAddress)
	case "details":
		return core.OptString(a.Details)
	}
	return core.Null
}

type rawAuditLog struct {
	ID         core.Loose `json:"id"`
	MongoID    core.Loose `json:"_id"`
	CreatedAt  core.Loose `json:"created_at"`
	CreatedCC  core.Loose `json:"createdAt"`
	Timestamp  core.Loose `json:"timestamp"`
	Actor      core.Loose `json:"actor"`
	User       rawRef     `json:"user"`
	ActorRole  core.Loose `json:"actor_role"`
	ActorCC    core.Loose `json:"actorRole"`
	Action     core.Loose `json:"action"`
	Entity     core.Loose `json:"entity"`
	EntityType core.Loose `json:"entityType"`
	EntityID   core.Loose `json:"entity_id"`
	EntityIDCC core.Loose `json:"entityId"`
	Severity   core.Loose `json:"severity"`
	IPAddress  core.Loose `json:"ip_address"`
	IPCC       core.Loose `json:"ipAddress"`
	Details    core.Loose `json:"details"`
}

func decodeAuditLog(raw json.RawMessage) (core.Record, error) {
	var r rawAuditLog
	if err := decode(core.EntityAuditLogs, raw, &r); err != nil {
		return nil, err
	}
	created := firstDate(r.CreatedAt, r.CreatedCC, r.Timestamp)
	severity := NormalizeStatus(r.Severity.Text())
	if severity == "" {
		severity = "info"
	}
	return &AuditLog{
		ID:        firstText(r.ID, r.MongoID),
		CreatedAt: created,
		Actor:     firstText(r.Actor, r.User.Name),
		ActorRole: NormalizeStatus(firstText(r.ActorRole, r.ActorCC)),
		Action:    NormalizeStatus(r.Action.Text()),
		Target:    NormalizeStatus(firstText(r.Entity, r.EntityType)),
		TargetID:  firstText(r.EntityID, r.EntityIDCC),
		Severity:  severity,
		IPAddress: firstText(r.IPAddress, r.IPCC),
		Details:   r.Details.Text(),
	}, nil
}
