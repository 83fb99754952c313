// Package bledb holds the closed table of Bluetooth SIG assigned numbers used to
// give services, characteristics and descriptors human-readable names.
//
// The table lives in registry.yaml and is embedded at build time. Extending the
// registry is a data change; Resolve and the Lookup functions never fail.
package bledb

import (
	_ "embed"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// UnknownCharacteristic is the name returned by Resolve for unregistered identifiers.
const UnknownCharacteristic = "Unknown Characteristic"

//go:embed registry.yaml
var registryData []byte

// Kind selects one of the registry tables.
type Kind string

const (
	KindService        Kind = "service"
	KindCharacteristic Kind = "characteristic"
	KindDescriptor     Kind = "descriptor"
)

// Info is the human-readable metadata for an assigned number.
type Info struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Entry is a single registry row.
type Entry struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

type registryFile struct {
	Services        []Entry `yaml:"services"`
	Characteristics []Entry `yaml:"characteristics"`
	Descriptors     []Entry `yaml:"descriptors"`
}

// Registry maps 16-bit short identifiers to metadata, keeping file order.
type Registry struct {
	tables map[Kind]*orderedmap.OrderedMap[string, Info]
}

// Load parses registry YAML. Identifiers are normalized, so "0x2A37" and "2a37" are the same key.
func Load(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}

	r := &Registry{tables: make(map[Kind]*orderedmap.OrderedMap[string, Info], 3)}
	for kind, entries := range map[Kind][]Entry{
		KindService:        file.Services,
		KindCharacteristic: file.Characteristics,
		KindDescriptor:     file.Descriptors,
	} {
		table := orderedmap.New[string, Info]()
		for i, e := range entries {
			id := NormalizeUUID(e.ID)
			if id == "" {
				return nil, fmt.Errorf("%s entry %d has an empty id", kind, i)
			}
			if _, dup := table.Set(id, Info{Name: e.Name, Description: e.Description}); dup {
				return nil, fmt.Errorf("duplicate %s id %q", kind, e.ID)
			}
		}
		r.tables[kind] = table
	}
	return r, nil
}

// Lookup returns the metadata for an identifier of the given kind.
// The identifier may be a short id or any UUID form accepted by NormalizeUUID.
func (r *Registry) Lookup(kind Kind, id string) (Info, bool) {
	table, ok := r.tables[kind]
	if !ok {
		return Info{}, false
	}
	return table.Get(NormalizeUUID(id))
}

// Resolve looks up a characteristic short id, falling back to UnknownCharacteristic.
func (r *Registry) Resolve(shortID string) Info {
	if info, ok := r.Lookup(KindCharacteristic, shortID); ok {
		return info
	}
	return Info{Name: UnknownCharacteristic}
}

// Entries lists a table in registry file order.
func (r *Registry) Entries(kind Kind) []Entry {
	table, ok := r.tables[kind]
	if !ok {
		return nil
	}
	result := make([]Entry, 0, table.Len())
	for pair := table.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, Entry{ID: pair.Key, Name: pair.Value.Name, Description: pair.Value.Description})
	}
	return result
}

var defaultRegistry = mustLoad(registryData)

func mustLoad(data []byte) *Registry {
	r, err := Load(data)
	if err != nil {
		panic(fmt.Sprintf("bledb: embedded registry is invalid: %v", err))
	}
	return r
}

// Default returns the embedded registry.
func Default() *Registry {
	return defaultRegistry
}

// Resolve maps a 16-bit characteristic short id to its name and description.
func Resolve(shortID string) Info {
	return defaultRegistry.Resolve(shortID)
}

// LookupService returns the service name, or "" if unknown.
func LookupService(uuid string) string {
	info, _ := defaultRegistry.Lookup(KindService, uuid)
	return info.Name
}

// LookupCharacteristic returns the characteristic name, or "" if unknown.
func LookupCharacteristic(uuid string) string {
	info, _ := defaultRegistry.Lookup(KindCharacteristic, uuid)
	return info.Name
}

// LookupDescriptor returns the descriptor name, or "" if unknown.
func LookupDescriptor(uuid string) string {
	info, _ := defaultRegistry.Lookup(KindDescriptor, uuid)
	return info.Name
}

// Services lists the registered services in file order.
func Services() []Entry { return defaultRegistry.Entries(KindService) }

// Characteristics lists the registered characteristics in file order.
func Characteristics() []Entry { return defaultRegistry.Entries(KindCharacteristic) }

// Descriptors lists the registered descriptors in file order.
func Descriptors() []Entry { return defaultRegistry.Entries(KindDescriptor) }
