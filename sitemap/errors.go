package sitemap

import "errors"

var (
	// ErrAuthorizationDenied is returned when the requester may not list a
	// forum or the forum is excluded from sitemaps.
	ErrAuthorizationDenied = errors.New("not authorised to read this forum")

	// ErrNoData is returned when a builder produced no records.
	ErrNoData = errors.New("no sitemap data is available")

	// ErrNotFound is returned for disabled sitemap kinds.
	ErrNotFound = errors.New("sitemap not found")
)
