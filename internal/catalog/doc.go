// Package catalog defines the records that flow through the enrichment
// pipeline: the input Item, provider Candidates and Covers, and the ordered
// ResultSet the engine accumulates.
//
// Item names are the identity key everywhere. ResultSet enforces
// dedup-on-insert so no later stage can emit two entries with the same name,
// and Item.Fill applies the fill-only-if-empty merge policy shared by the
// automatic and manual resolution paths.
package catalog
