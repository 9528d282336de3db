package core

import (
	"encoding/json"
	"fmt"
	"sync"
)

// FilterBindings names the record fields each filter dimension reads.
// Tags names the column that lists a record's tags; the filter itself
// matches Record.Tags. An empty binding means the entity does not support
// that dimension: requests filtering on it are rejected, and no record
// matches it.
type FilterBindings struct {
	Status   string
	Category string
	Amount   string
	Location string
	Tags     string
}

// Dimensions lists the supported filter dimensions by request field name.
func (b FilterBindings) Dimensions() []string {
	var dims []string
	for _, d := range []struct {
		name    string
		binding string
	}{
		{"status", b.Status},
		{"category", b.Category},
		{"amount", b.Amount},
		{"location", b.Location},
		{"tags", b.Tags},
	} {
		if d.binding != "" {
			dims = append(dims, d.name)
		}
	}
	return dims
}

// DecodeFunc turns one raw source object into a typed record.
type DecodeFunc func(raw json.RawMessage) (Record, error)

// EntityDefinition contains everything needed to export one entity type.
type EntityDefinition struct {
	Type    EntityType
	Label   string
	Columns []ColumnDefinition
	Filters FilterBindings
	// TimestampField is the column reported as the canonical timestamp.
	TimestampField string
	Decode         DecodeFunc
	Adapter        Adapter
}

// Column looks up a column definition by id.
func (d EntityDefinition) Column(id string) (ColumnDefinition, bool) {
	for _, c := range d.Columns {
		if c.ID == id {
			return c, true
		}
	}
	return ColumnDefinition{}, false
}

var (
	registry   = make(map[EntityType]EntityDefinition)
	registryMu sync.RWMutex
)

// Register adds an entity definition to the catalog.
// Panics if the entity is already registered or is not a known type.
func Register(def EntityDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if !def.Type.Valid() {
		panic(fmt.Sprintf("unknown entity type: %s", def.Type))
	}
	if _, exists := registry[def.Type]; exists {
		panic(fmt.Sprintf("entity already registered: %s", def.Type))
	}
	if def.Adapter == nil {
		def.Adapter = NoAdapter{}
	}

	registry[def.Type] = def
}

// Lookup returns an entity definition by type.
func Lookup(entity EntityType) (EntityDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[entity]
	return def, ok
}

// Entities returns all registered definitions in EntityTypes order.
func Entities() []EntityDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]EntityDefinition, 0, len(registry))
	for _, t := range EntityTypes {
		if def, ok := registry[t]; ok {
			result = append(result, def)
		}
	}
	return result
}

// EntityCount returns the number of registered entities.
func EntityCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
