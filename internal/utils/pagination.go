// Package utils holds the paging arithmetic shared by the HTTP layer, the
// record services and the citizen repository.
package utils

import "strconv"

// Paging defaults applied to every listing.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AtoiDefault converts s with strconv.Atoi, returning def when s is empty or
// not an integer.
//
//	n := utils.AtoiDefault("42", 0) // 42
//	n = utils.AtoiDefault("x", 5)   // 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampPage bounds a requested page to page >= 1 and 1 <= size <= MaxPageSize.
// A non-positive size becomes DefaultPageSize.
func ClampPage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// Window is ClampPage plus the row offset of the page.
func Window(page, size int) (p, s, offset int) {
	p, s = ClampPage(page, size)
	return p, s, (p - 1) * s
}

// TotalPages is the number of pages of size needed for total rows.
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
