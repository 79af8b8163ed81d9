// Package model defines the domain types shared across the crawl pipeline.
package model

import (
	"strings"
	"time"
)

// Place is one discovered business, combining nearby-search fields with the
// website and phone from the detail lookup. ID is assigned by the store on
// insert and defines the read-cursor ordering.
type Place struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Address   string    `json:"address" db:"address"`
	Phone     string    `json:"phone" db:"phone"`
	Website   string    `json:"website" db:"website"`
	Rating    *float64  `json:"rating" db:"rating"`
	Types     []string  `json:"types" db:"types"`
	Status    string    `json:"status" db:"status"`
	FetchedAt time.Time `json:"-" db:"fetched_at"`
}

// JoinTypes serializes a category tag list for storage as a single column.
func JoinTypes(types []string) string {
	return strings.Join(types, ",")
}

// SplitTypes is the inverse of JoinTypes. An empty column yields an empty
// (non-nil) list so the JSON encoding stays `[]` rather than `null`.
func SplitTypes(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
