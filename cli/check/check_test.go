package check

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zvonler/forumsitemap/checker"
	"github.com/zvonler/forumsitemap/sitemap"
)

func TestPrintReport(t *testing.T) {
	report := &checker.Report{
		Sitemaps: []checker.SitemapReport{
			{URL: "https://forum.example/sitemap", Kind: sitemap.KindIndex, URLs: 2},
			{URL: "https://forum.example/sitemap/current", Kind: sitemap.KindURLSet, URLs: 10, Images: 3},
		},
		PagesChecked: 10,
		PageFailures: []checker.Failure{{URL: "https://forum.example/viewtopic.php?t=9", Status: 404, Err: "Not Found"}},
	}

	var buf bytes.Buffer
	printReport(&buf, report, false)
	out := buf.String()
	require.Contains(t, out, "https://forum.example/sitemap/current  urlset")
	require.Contains(t, out, "10 pages checked, 1 failed")
	require.Contains(t, out, "FAIL https://forum.example/viewtopic.php?t=9 (404 Not Found)")
}
