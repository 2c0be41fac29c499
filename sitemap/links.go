package sitemap

import (
	"fmt"
	"net/url"

	"github.com/zvonler/forumsitemap/model"
)

// Links builds absolute URLs for board pages and for this service's own
// sitemap routes.
type Links struct {
	Board      *url.URL
	Base       *url.URL
	PHPExt     string
	Stylesheet string
}

func (l Links) board(format string, args ...any) string {
	return l.Board.String() + fmt.Sprintf(format, args...)
}

func (l Links) route(format string, args ...any) string {
	return l.Base.String() + fmt.Sprintf(format, args...)
}

// Topic links a page of a topic; start is the offset of its first post.
func (l Links) Topic(id model.TopicID, start int) string {
	if start > 0 {
		return l.board("/viewtopic.%s?t=%d&start=%d", l.PHPExt, id, start)
	}
	return l.board("/viewtopic.%s?t=%d", l.PHPExt, id)
}

// Forum links a page of a forum's topic list; start is the topic offset.
func (l Links) Forum(id model.ForumID, start int) string {
	if start > 0 {
		return l.board("/viewforum.%s?f=%d&start=%d", l.PHPExt, id, start)
	}
	return l.board("/viewforum.%s?f=%d", l.PHPExt, id)
}

func (l Links) Attachment(id model.AttachmentID) string {
	return l.board("/download/file.%s?id=%d&mode=view", l.PHPExt, id)
}

func (l Links) IndexSitemap() string {
	return l.route("/sitemap")
}

func (l Links) CurrentSitemap() string {
	return l.route("/sitemap/current")
}

func (l Links) ForumSitemap(id model.ForumID) string {
	return l.route("/sitemap/forum/%d", id)
}

func (l Links) TopicsSitemap(id model.ForumID) string {
	return l.route("/sitemap/forum/%d/topics", id)
}

func (l Links) AdditionalSitemap() string {
	return l.route("/sitemap/additional")
}

// StylesheetURL defaults to the stylesheet served next to the sitemaps.
func (l Links) StylesheetURL() string {
	if l.Stylesheet != "" {
		return l.Stylesheet
	}
	return l.route("/sitemap/style.xsl")
}
