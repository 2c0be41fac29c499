package sitemap

import "time"

type Kind string

const (
	KindIndex  Kind = "sitemapindex"
	KindURLSet Kind = "urlset"
)

type Image struct {
	URL     string
	Caption string
}

// URLRecord is one entry of a sitemap document. Priority and Frequency are
// only rendered for urlset documents.
type URLRecord struct {
	Location     string
	LastModified time.Time
	Priority     float64
	Frequency    Frequency
	Images       []Image
}
