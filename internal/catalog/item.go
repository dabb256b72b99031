package catalog

import (
	"strings"
)

// Status represents the enrichment outcome of an item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusNoResults Status = "no_results"
	StatusErrored   Status = "errored"
)

var allStatuses = []Status{
	StatusPending,
	StatusCompleted,
	StatusNoResults,
	StatusErrored,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// Item is one named unit to enrich.
type Item struct {
	Name        string            `json:"name" yaml:"name"`
	DisplayName string            `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	CoverURL    string            `json:"cover_url,omitempty" yaml:"cover_url,omitempty"`
	ReleaseYear string            `json:"release_year,omitempty" yaml:"release_year,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Status      Status            `json:"status" yaml:"status"`
	Extra       map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// KnownFlags tells a provider which fields the item already carries so it can
// skip fetching them.
type KnownFlags struct {
	HasImage       bool
	HasYear        bool
	HasDescription bool
}

// Known reports the populated optional fields of the item.
func (i Item) Known() KnownFlags {
	return KnownFlags{
		HasImage:       strings.TrimSpace(i.CoverURL) != "",
		HasYear:        strings.TrimSpace(i.ReleaseYear) != "",
		HasDescription: strings.TrimSpace(i.Description) != "",
	}
}

// Clone returns a deep copy of the item.
func (i Item) Clone() Item {
	out := i
	if len(i.Extra) > 0 {
		out.Extra = make(map[string]string, len(i.Extra))
		for k, v := range i.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Label returns the name shown to humans, preferring the display name.
func (i Item) Label() string {
	if name := strings.TrimSpace(i.DisplayName); name != "" {
		return name
	}
	return i.Name
}

// Fill copies metadata and cover into a copy of the item, only touching fields
// that are empty. Name is never modified; a metadata name lands in DisplayName.
func (i Item) Fill(meta *Metadata, cover *Cover) Item {
	out := i.Clone()
	if cover != nil {
		fillString(&out.CoverURL, cover.URL)
	}
	if meta != nil {
		fillString(&out.DisplayName, meta.Name)
		fillString(&out.ReleaseYear, meta.Year)
		fillString(&out.Description, meta.Description)
	}
	return out
}

func fillString(dst *string, value string) {
	if strings.TrimSpace(*dst) != "" {
		return
	}
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

// WithStatus returns a copy of the item carrying status.
func (i Item) WithStatus(status Status) Item {
	out := i.Clone()
	out.Status = status
	return out
}

// ExtraValue returns the first non-empty extra column whose header matches
// one of labels case-insensitively.
func (i Item) ExtraValue(labels ...string) string {
	for _, label := range labels {
		for key, value := range i.Extra {
			if strings.EqualFold(key, label) && strings.TrimSpace(value) != "" {
				return strings.TrimSpace(value)
			}
		}
	}
	return ""
}
