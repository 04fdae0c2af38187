// Package hook defines the hook descriptors events and phenomena attach to
// their occurrences. The engine only produces sorted descriptor lists;
// dispatching them is external.
package hook

import "sort"

// Type tags the kind of hook a descriptor describes.
type Type string

// Known hook types.
const (
	TypeWebhook           Type = "webhook"
	TypeScript            Type = "script"
	TypeCartographerEvent Type = "cartographer_event"
)

// Descriptor is an immutable hook attachment. Priority defaults to 0.
type Descriptor struct {
	ID       string         `json:"id"`
	Type     Type           `json:"type"`
	Config   map[string]any `json:"config,omitempty"`
	Priority int            `json:"priority,omitempty"`
}

// SortByPriority returns a copy of hooks ordered by priority descending,
// then id ascending. The order is total.
func SortByPriority(hooks []Descriptor) []Descriptor {
	sorted := make([]Descriptor, len(hooks))
	copy(sorted, hooks)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}
