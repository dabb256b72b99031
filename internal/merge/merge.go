// Package merge combines the enrichment results with the original input list.
package merge

import "coverfill/internal/catalog"

// Results returns every accumulated item in insertion order followed by each
// original item whose name was never processed, in input order, marked
// pending. Names in the output are unique.
func Results(original []catalog.Item, accumulated *catalog.ResultSet) []catalog.Item {
	out := catalog.NewResultSet()
	for _, item := range accumulated.Items() {
		out.Insert(item)
	}
	for _, item := range original {
		if out.Has(item.Name) {
			continue
		}
		out.Insert(item.WithStatus(catalog.StatusPending))
	}
	return out.Items()
}
