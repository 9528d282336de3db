package entities

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

func init() {
	core.Register(core.EntityDefinition{
		Type:  core.EntityPayments,
		Label: "Payments",
		Columns: []core.ColumnDefinition{
			{ID: "id", Label: "ID", Field: "id", Type: core.ColumnString, Required: true},
			{ID: "reference", Label: "Reference", Field: "reference", Type: core.ColumnString, Required: true},
			{ID: "payer", Label: "Payer", Field: "payer", Type: core.ColumnString},
			{ID: "payee", Label: "Payee", Field: "payee", Type: core.ColumnString},
			{ID: "project_title", Label: "Project", Field: "project_title", Type: core.ColumnString},
			{ID: "method", Label: "Method", Field: "method", Type: core.ColumnString},
			{ID: "status", Label: "Status", Field: "status", Type: core.ColumnString},
			{ID: "amount", Label: "Amount", Field: "amount", Type: core.ColumnCurrency},
			{ID: "fee", Label: "Fee", Field: "fee", Type: core.ColumnCurrency},
			{ID: "currency", Label: "Currency", Field: "currency", Type: core.ColumnString},
			{ID: "paid_at", Label: "Paid On", Field: "paid_at", Type: core.ColumnDate},
		},
		Filters:        core.FilterBindings{Status: "status", Category: "method", Amount: "amount"},
		TimestampField: "paid_at",
		Decode:         decodePayment,
		Adapter: adapter{
			derived: []core.DerivedColumn{
				difference("net_amount", "Net Amount", "amount", "fee", core.ColumnCurrency),
			},
			summary: func(rs []core.Record) []core.Metric {
				out := []core.Metric{
					core.CountRecords("payments", rs),
					count("Completed payments", core.CountWhere(rs, "status", "completed")),
					sum("Total amount", rs, "amount"),
					sum("Total fees", rs, "fee"),
					average("Average payment", rs, "amount"),
				}
				return append(out, core.CountByField(rs, "method", "Method")...)
			},
		},
	})
}

// Payment is one donation or disbursement.
type Payment struct {
	ID           string
	Reference    string
	Payer        string
	Payee        string
	ProjectTitle string
	Method       string
	Status       string
	Amount       *float64
	Fee          *float64
	Currency     string
	PaidAt       time.Time
}

func (p *Payment) Entity() core.EntityType { return core.EntityPayments }
func (p *Payment) Tags() []string          { return nil }
func (p *Payment) Timestamp() time.Time    { return p.PaidAt }

func (p *Payment) Field(name string) core.Value {
	switch name {
	case "id":
		return core.OptString(p.ID)
	case "reference":
		return core.OptString(p.Reference)
	case "payer":
		return core.OptString(p.Payer)
	case "payee":
		return core.OptString(p.Payee)
	case "project_title":
		return core.OptString(p.ProjectTitle)
	case "method":
		return core.OptString(p.Method)
	case "status":
		return core.OptString(p.Status)
	case "amount":
		return core.OptNumber(p.Amount)
	case "fee":
		return core.OptNumber(p.Fee)
	case "currency":
		return core.OptString(p.Currency)
	case "paid_at":
		return core.Time(p.PaidAt)
	}
	return core.Null
}

type rawPayment struct {
	ID            core.Loose `json:"id"`
	MongoID       core.Loose `json:"_id"`
	Reference     core.Loose `json:"reference"`
	TransactionID core.Loose `json:"transactionId"`
	Payer         core.Loose `json:"payer"`
	DonorName     core.Loose `json:"donorName"`
	Payee         core.Loose `json:"payee"`
	NGO           rawRef     `json:"ngo"`
	ProjectTitle  core.Loose `json:"project_title"`
	ProjectCamel  core.Loose `json:"projectTitle"`
	Project       rawRef     `json:"project"`
	Method        core.Loose `json:"method"`
	PaymentMethod core.Loose `json:"paymentMethod"`
	Status        core.Loose `json:"status"`
	Amount        core.Loose `json:"amount"`
	Fee           core.Loose `json:"fee"`
	ProcessingFee core.Loose `json:"processingFee"`
	Currency      core.Loose `json:"currency"`
	PaidAt        core.Loose `json:"paid_at"`
	PaidAtCamel   core.Loose `json:"paidAt"`
	CreatedAt     core.Loose `json:"createdAt"`
}

func decodePayment(raw json.RawMessage) (core.Record, error) {
	var r rawPayment
	if err := decode(core.EntityPayments, raw, &r); err != nil {
		return nil, err
	}
	paidAt := firstDate(r.PaidAt, r.PaidAtCamel, r.CreatedAt)
	currency := strings.ToUpper(r.Currency.Text())
	if currency == "" {
		currency = "PKR"
	}
	return &Payment{
		ID:           firstText(r.ID, r.MongoID),
		Reference:    firstText(r.Reference, r.TransactionID),
		Payer:        firstText(r.Payer, r.DonorName),
		Payee:        firstText(r.Payee, r.NGO.Name),
		ProjectTitle: firstText(r.ProjectTitle, r.ProjectCamel, r.Project.Name),
		Method:       NormalizeStatus(firstText(r.Method, r.PaymentMethod)),
		Status:       NormalizeStatus(r.Status.Text()),
		Amount:       r.Amount.Amount(),
		Fee:          firstAmount(r.Fee, r.ProcessingFee),
		Currency:     currency,
		PaidAt:       paidAt,
	}, nil
}
