// Package core provides the business logic for export and report generation.
//
// This package contains all domain logic independent of any transport. It is
// used by the HTTP job API, the CLI and tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Entity Definitions: registered via the registry, each entity type has a
//     column catalog, filter bindings, a decoder and an adapter.
//   - Pipeline: filters, sorts, caps and projects records into rows.
//   - Renderers: one builder per format, registered from their own packages.
//   - Jobs: a state machine whose every transition is persisted.
//   - Service: the single entry point for submitting and tracking exports.
//
// # Entity Registry
//
// Entities are registered at init time using [Register]:
//
//	core.Register(core.EntityDefinition{
//	    Type:  core.EntityPayments,
//	    Label: "Payments",
//	    Columns: []core.ColumnDefinition{
//	        {ID: "reference", Label: "Reference", Field: "reference", Type: core.ColumnString, Required: true},
//	        {ID: "amount", Label: "Amount", Field: "amount", Type: core.ColumnCurrency},
//	    },
//	    Filters: core.FilterBindings{Status: "status", Amount: "amount"},
//	    Decode:  decodePayment,
//	})
//
// # Export Flow
//
//  1. Client calls [Service.Submit] with a job name and an [ExportConfig]
//  2. The request is validated; failures return [ValidationErrors] and no job
//  3. A pending job is recorded and run in the background under the limiter
//  4. Records are fetched, transformed by the [Pipeline] and rendered
//  5. The artifact goes to the [Downloader] and the job completes
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - VAL001-VAL007: Request validation
//   - REN001-REN003: Document rendering
//   - PER001-PER002: History persistence
//   - JOB001-JOB003: Job lifecycle
//   - EXP001-EXP006: Export execution
package core
