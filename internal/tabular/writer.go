package tabular

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"coverfill/internal/catalog"
)

// Format selects an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a flag value into a Format.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "csv":
		return FormatCSV, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want csv or yaml)", value)
	}
}

var exportHeader = []string{"Nombre", "Nuevo Nombre", "Portada", "Año", "Descripción"}

// Write encodes items in the requested format.
func Write(w io.Writer, format Format, items []catalog.Item) error {
	switch format {
	case FormatYAML:
		return WriteYAML(w, items)
	default:
		return WriteCSV(w, items)
	}
}

// WriteCSV writes a header row and one row per item with every field quoted.
// The header uses the input aliases so an export can be read back.
func WriteCSV(w io.Writer, items []catalog.Item) error {
	if err := writeQuotedRow(w, exportHeader); err != nil {
		return err
	}
	for _, item := range items {
		row := []string{item.Name, item.DisplayName, item.CoverURL, item.ReleaseYear, item.Description}
		if err := writeQuotedRow(w, row); err != nil {
			return err
		}
	}
	return nil
}

func writeQuotedRow(w io.Writer, fields []string) error {
	var b strings.Builder
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(field, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

type yamlDocument struct {
	Games []catalog.Item `yaml:"games"`
}

// WriteYAML writes items under a top-level games key.
func WriteYAML(w io.Writer, items []catalog.Item) error {
	if items == nil {
		items = []catalog.Item{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlDocument{Games: items}); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
