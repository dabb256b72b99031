package catalog

import "strings"

// ManualCoverID is the sentinel identifier given to covers typed in by a human.
const ManualCoverID int64 = -1

// Candidate is a provider-suggested near match that needs human confirmation.
type Candidate struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Year        string `json:"year,omitempty"`
	Description string `json:"description,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
	Provider    string `json:"provider"`
}

// Cover is a concrete selectable image result.
type Cover struct {
	ID       int64    `json:"id"`
	URL      string   `json:"url"`
	ThumbURL string   `json:"thumb_url"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Score    int      `json:"score"`
	Style    string   `json:"style,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// ManualCover synthesizes a cover for a URL supplied by a human.
func ManualCover(url string) Cover {
	url = strings.TrimSpace(url)
	return Cover{
		ID:       ManualCoverID,
		URL:      url,
		ThumbURL: url,
		Width:    600,
		Height:   900,
		Score:    100,
		Style:    "manual",
		Tags:     []string{"manual"},
	}
}

// Metadata is the descriptive data a provider may return alongside covers.
type Metadata struct {
	Name        string `json:"name,omitempty"`
	Year        string `json:"year,omitempty"`
	Description string `json:"description,omitempty"`
}

// IsZero reports whether no metadata field is populated.
func (m *Metadata) IsZero() bool {
	if m == nil {
		return true
	}
	return strings.TrimSpace(m.Name) == "" &&
		strings.TrimSpace(m.Year) == "" &&
		strings.TrimSpace(m.Description) == ""
}

// Restrict drops metadata fields the item already has. Name is kept because it
// feeds the display-name override.
func (m *Metadata) Restrict(known KnownFlags) *Metadata {
	if m == nil {
		return nil
	}
	out := *m
	if known.HasYear {
		out.Year = ""
	}
	if known.HasDescription {
		out.Description = ""
	}
	return &out
}
