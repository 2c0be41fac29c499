package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/zvonler/forumsitemap/database"
	"github.com/zvonler/forumsitemap/model"
	"github.com/zvonler/forumsitemap/sitemap"
)

var now = time.Unix(1700000000, 0)

func seed(t *testing.T, fdb *database.ForumDB) {
	forums := []model.Forum{
		{ID: 1, Name: "General", Type: model.ForumPost, LastPostTime: now.Add(-time.Hour), TopicsApproved: 12},
		{ID: 2, Name: "Staff", Type: model.ForumPost, LastPostTime: now.Add(-time.Hour), TopicsApproved: 12},
		{ID: 4, Name: "Tiny", Type: model.ForumPost, LastPostTime: now.Add(-time.Hour), TopicsApproved: 1},
	}
	for _, f := range forums {
		require.NoError(t, fdb.InsertOrUpdateForum(f))
	}
	require.NoError(t, fdb.SetListPermission("GUESTS", 1, true))
	require.NoError(t, fdb.SetListPermission("GUESTS", 4, true))

	require.NoError(t, fdb.InsertOrUpdateTopic(model.Topic{
		ID: 10, ForumID: 1, Title: "recent", LastPostTime: now.Add(-time.Hour), PostsApproved: 4, HasAttachments: true,
	}))
	require.NoError(t, fdb.InsertOrUpdateTopic(model.Topic{
		ID: 11, ForumID: 1, Title: "archived", LastPostTime: now.Add(-90 * 24 * time.Hour), PostsApproved: 2,
	}))
	require.NoError(t, fdb.AddAttachments([]model.Attachment{
		{ID: 5, PostID: 100, TopicID: 10, Comment: "screenshot", MimeType: "image/png"},
	}))
}

func newTestServer(t *testing.T, linkEnabled bool) (*httptest.Server, *database.ForumDB) {
	fdb, err := database.OpenForumDB(t.TempDir() + "/forum.db")
	require.NoError(t, err)
	seed(t, fdb)

	board, _ := url.Parse("https://board.example")
	base, _ := url.Parse("https://sitemaps.example")
	gen := sitemap.NewGenerator(fdb, fdb.GroupACL("GUESTS"), nil, sitemap.Options{
		ForumThreshold:   2,
		ImagesEnabled:    true,
		StickyPriority:   0.8,
		GlobalPriority:   0.9,
		AnnouncePriority: 0.9,
		PostsPerPage:     10,
		TopicsPerPage:    25,
	}, sitemap.Links{Board: board, Base: base, PHPExt: "php"})
	gen.SetClock(func() time.Time { return now })

	srv := httptest.NewServer(New(gen, linkEnabled).Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(fdb.Close)
	return srv, fdb
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, string) {
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestSitemapRoutes(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp, body := get(t, srv, "/sitemap")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, sitemap.ContentType, resp.Header.Get("Content-Type"))
	require.Contains(t, body, "<sitemapindex")
	require.Contains(t, body, "<loc>https://sitemaps.example/sitemap/forum/1/topics</loc>")
	require.NotContains(t, body, "sitemap/forum/2")
	require.NotContains(t, body, "sitemap/forum/4")
	require.Contains(t, body, `href="https://sitemaps.example/sitemap/style.xsl"`)

	_, err := uuid.Parse(resp.Header.Get("X-Request-Id"))
	require.NoError(t, err)

	resp, body = get(t, srv, "/sitemap/current")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "<loc>https://board.example/viewtopic.php?t=10</loc>")
	require.Contains(t, body, "<image:loc>https://board.example/download/file.php?id=5&amp;mode=view</image:loc>")
	require.NotContains(t, body, "t=11")

	resp, body = get(t, srv, "/sitemap/forum/1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "<loc>https://board.example/viewforum.php?f=1</loc>")

	resp, body = get(t, srv, "/sitemap/forum/1/topics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "<loc>https://board.example/viewtopic.php?t=11</loc>")
	require.NotContains(t, body, "t=10<")
}

func TestErrorStatuses(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp, _ := get(t, srv, "/sitemap/forum/2")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = get(t, srv, "/sitemap/forum/2/topics")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := get(t, srv, "/sitemap/forum/4")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, noDataMessage, strings.TrimSpace(body))

	resp, _ = get(t, srv, "/sitemap/forum/abc")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, srv, "/sitemap/additional")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, srv, "/robots.txt")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err := http.Post(srv.URL+"/sitemap", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStoreFailure(t *testing.T) {
	srv, fdb := newTestServer(t, false)
	fdb.Close()

	resp, _ := get(t, srv, "/sitemap")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestStylesheetAndRobots(t *testing.T) {
	srv, _ := newTestServer(t, true)

	resp, body := get(t, srv, "/sitemap/style.xsl")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, sitemap.StylesheetContentType, resp.Header.Get("Content-Type"))
	require.Contains(t, body, "xsl:stylesheet")

	resp, body = get(t, srv, "/robots.txt")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Sitemap: https://sitemaps.example/sitemap\n", body)
}
