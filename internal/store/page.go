package store

import "fmt"

// Page is one slice of a larger result plus the size of the whole.
type Page[T any] struct {
	Items  []*T  `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// HasMore reports whether rows exist past this page.
func (p *Page[T]) HasMore() bool {
	return int64(p.Offset+len(p.Items)) < p.Total
}

// CountSQL wraps query for counting its rows.
func CountSQL(query string) string {
	return "SELECT COUNT(*) FROM (" + query + ") _TOTAL_"
}

// PageSQL limits query to one page.
func PageSQL(query string, limit, offset int) string {
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", query, limit, offset)
}
