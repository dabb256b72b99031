package catalog

import (
	"encoding/json"
	"fmt"
)

// ResultSet is an insertion-ordered mapping of item name to Item. Keys are
// unique: Insert never replaces an existing entry.
type ResultSet struct {
	order []string
	items map[string]Item
}

// NewResultSet returns an empty result set.
func NewResultSet() *ResultSet {
	return &ResultSet{items: make(map[string]Item)}
}

// Insert adds item when its name is not yet present and reports whether it
// was added.
func (r *ResultSet) Insert(item Item) bool {
	if r.items == nil {
		r.items = make(map[string]Item)
	}
	if _, exists := r.items[item.Name]; exists {
		return false
	}
	r.items[item.Name] = item.Clone()
	r.order = append(r.order, item.Name)
	return true
}

// Get returns the entry stored under name.
func (r *ResultSet) Get(name string) (Item, bool) {
	if r == nil || r.items == nil {
		return Item{}, false
	}
	item, ok := r.items[name]
	if !ok {
		return Item{}, false
	}
	return item.Clone(), true
}

// Has reports whether name is present.
func (r *ResultSet) Has(name string) bool {
	if r == nil || r.items == nil {
		return false
	}
	_, ok := r.items[name]
	return ok
}

// Len returns the number of entries.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Items returns copies of the entries in insertion order.
func (r *ResultSet) Items() []Item {
	if r == nil {
		return nil
	}
	out := make([]Item, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.items[name].Clone())
	}
	return out
}

// Names returns the keys in insertion order.
func (r *ResultSet) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Clone returns an independent copy.
func (r *ResultSet) Clone() *ResultSet {
	out := NewResultSet()
	if r == nil {
		return out
	}
	for _, item := range r.Items() {
		out.Insert(item)
	}
	return out
}

// CountByStatus tallies entries per status.
func (r *ResultSet) CountByStatus() map[Status]int {
	counts := make(map[Status]int, len(allStatuses))
	if r == nil {
		return counts
	}
	for _, name := range r.order {
		counts[r.items[name].Status]++
	}
	return counts
}

// MarshalJSON encodes the set as an ordered list of items.
func (r *ResultSet) MarshalJSON() ([]byte, error) {
	items := r.Items()
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(items)
}

// UnmarshalJSON decodes an ordered list of items. Duplicate names are an error
// because a persisted set must already satisfy the uniqueness invariant.
func (r *ResultSet) UnmarshalJSON(data []byte) error {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	r.order = nil
	r.items = make(map[string]Item, len(items))
	for _, item := range items {
		if !r.Insert(item) {
			return fmt.Errorf("duplicate result name %q", item.Name)
		}
	}
	return nil
}
