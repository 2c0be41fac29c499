package sitemap

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/zvonler/forumsitemap/model"
	"github.com/zvonler/forumsitemap/utils"
)

// Topics whose last post is within this window belong to the current
// sitemap; older ones are listed in their forum's topics sitemap.
const CurrentWindow = 30 * 24 * time.Hour

const DefaultCacheTTL = 24 * time.Hour

// Store is the read-only view of forum content.
type Store interface {
	PostForums() ([]model.Forum, error)
	Forum(id model.ForumID) (model.Forum, bool, error)
	TopicsActiveSince(cutoff time.Time) ([]model.Topic, error)
	ForumTopicsInactiveSince(forumID model.ForumID, cutoff time.Time) ([]model.Topic, error)
	VisiblePostIDs(topicID model.TopicID) ([]model.PostID, error)
	TopicImages(topicID model.TopicID) ([]model.Attachment, error)
}

// Access decides whether the requester may see a forum in listings.
type Access interface {
	CanList(forumID model.ForumID) (bool, error)
}

// Cache stores rendered documents.
type Cache interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, document []byte, ttl time.Duration) error
}

// Options are the sitemap settings, validated by the configuration loader.
type Options struct {
	ForumExclude      []model.ForumID
	ForumThreshold    uint
	ImagesEnabled     bool
	AdditionalEnabled bool
	StickyPriority    float64
	GlobalPriority    float64
	AnnouncePriority  float64
	PostsPerPage      int
	TopicsPerPage     int
	CacheTTL          time.Duration
}

type Generator struct {
	store  Store
	access Access
	cache  Cache
	opts   Options
	links  Links
	hooks  Hooks
	now    func() time.Time
}

// NewGenerator wires the collaborators. cache may be nil to disable caching.
func NewGenerator(store Store, access Access, cache Cache, opts Options, links Links) *Generator {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	return &Generator{
		store:  store,
		access: access,
		cache:  cache,
		opts:   opts,
		links:  links,
		now:    time.Now,
	}
}

func (g *Generator) Hooks() *Hooks {
	return &g.hooks
}

func (g *Generator) Links() Links {
	return g.links
}

func (g *Generator) SetClock(now func() time.Time) {
	g.now = now
}

func (g *Generator) excluded(id model.ForumID) bool {
	return lo.Contains(g.opts.ForumExclude, id)
}

// Eligibility explains whether a forum appears in the sitemap index.
type Eligibility struct {
	Listable       bool
	Excluded       bool
	AboveThreshold bool
}

func (e Eligibility) Eligible() bool {
	return e.Listable && !e.Excluded && e.AboveThreshold
}

func (g *Generator) Eligibility(f model.Forum) (e Eligibility, err error) {
	if e.Listable, err = g.access.CanList(f.ID); err != nil {
		return
	}
	e.Excluded = g.excluded(f.ID)
	e.AboveThreshold = f.TopicsApproved > g.opts.ForumThreshold
	return
}

// checkForum is the permission and exclusion gate for forum scoped sitemaps.
func (g *Generator) checkForum(id model.ForumID) error {
	allowed, err := g.access.CanList(id)
	if err != nil {
		return err
	}
	if !allowed || g.excluded(id) {
		return ErrAuthorizationDenied
	}
	return nil
}

// IndexRecords lists the current sitemap, the two sitemaps of every
// eligible forum and, when enabled, the additional pages sitemap.
func (g *Generator) IndexRecords() ([]URLRecord, error) {
	now := g.now()
	records := []URLRecord{{Location: g.links.CurrentSitemap(), LastModified: now}}

	forums, err := g.store.PostForums()
	if err != nil {
		return nil, err
	}
	for _, f := range forums {
		e, err := g.Eligibility(f)
		if err != nil {
			return nil, err
		}
		if !e.Eligible() {
			continue
		}
		records = append(records,
			URLRecord{Location: g.links.ForumSitemap(f.ID), LastModified: f.LastPostTime},
			URLRecord{Location: g.links.TopicsSitemap(f.ID), LastModified: f.LastPostTime})
	}

	if g.opts.AdditionalEnabled {
		records = append(records, URLRecord{Location: g.links.AdditionalSitemap(), LastModified: now})
	}
	return records, nil
}

// CurrentRecords lists every page of the topics active within CurrentWindow
// in forums the requester may list.
func (g *Generator) CurrentRecords() ([]URLRecord, error) {
	now := g.now()
	topics, err := g.store.TopicsActiveSince(now.Add(-CurrentWindow))
	if err != nil {
		return nil, err
	}

	allowed := make(map[model.ForumID]bool)
	var records []URLRecord
	for _, t := range topics {
		ok, seen := allowed[t.ForumID]
		if !seen {
			if ok, err = g.access.CanList(t.ForumID); err != nil {
				return nil, err
			}
			ok = ok && !g.excluded(t.ForumID)
			allowed[t.ForumID] = ok
		}
		if !ok {
			continue
		}
		topicRecords, err := g.topicRecords(t, now)
		if err != nil {
			return nil, err
		}
		records = append(records, topicRecords...)
	}
	return records, nil
}

// ForumRecords lists every page of a forum's topic list.
func (g *Generator) ForumRecords(id model.ForumID) ([]URLRecord, error) {
	if err := g.checkForum(id); err != nil {
		return nil, err
	}
	return g.forumRecords(id)
}

func (g *Generator) forumRecords(id model.ForumID) ([]URLRecord, error) {
	f, found, err := g.store.Forum(id)
	if err != nil {
		return nil, err
	}
	if !found || f.TopicsApproved <= g.opts.ForumThreshold {
		return nil, ErrNoData
	}

	now := g.now()
	pages := PageCount(f.TopicsApproved, g.opts.TopicsPerPage)
	priority := Priority(f.LastPostTime, pages, now)
	freq := FrequencyAt(f.LastPostTime, now)

	records := []URLRecord{{
		Location:     g.links.Forum(id, 0),
		LastModified: f.LastPostTime,
		Priority:     RoundPriority(priority),
		Frequency:    freq,
	}}
	for page := 2; page <= pages; page++ {
		records = append(records, URLRecord{
			Location:     g.links.Forum(id, (page-1)*g.opts.TopicsPerPage),
			LastModified: f.LastPostTime,
			Priority:     ContinuationPriority(priority),
			Frequency:    freq,
		})
	}
	return records, nil
}

// TopicRecords lists every page of a forum's topics that fell out of the
// current window.
func (g *Generator) TopicRecords(id model.ForumID) ([]URLRecord, error) {
	if err := g.checkForum(id); err != nil {
		return nil, err
	}
	return g.topicListRecords(id)
}

func (g *Generator) topicListRecords(id model.ForumID) ([]URLRecord, error) {
	now := g.now()
	topics, err := g.store.ForumTopicsInactiveSince(id, now.Add(-CurrentWindow))
	if err != nil {
		return nil, err
	}
	var records []URLRecord
	for _, t := range topics {
		topicRecords, err := g.topicRecords(t, now)
		if err != nil {
			return nil, err
		}
		records = append(records, topicRecords...)
	}
	return records, nil
}

// AdditionalRecords collects the pages supplied through OnAdditionalPages.
func (g *Generator) AdditionalRecords() ([]URLRecord, error) {
	if !g.opts.AdditionalEnabled {
		return nil, ErrNotFound
	}
	now := g.now()
	pages := g.hooks.additionalPages()
	records := make([]URLRecord, 0, len(pages))
	for _, p := range pages {
		r := URLRecord{
			Location:     p.Location,
			LastModified: p.LastModified,
			Priority:     RoundPriority(Priority(p.LastModified, 1, now)),
			Frequency:    FrequencyAt(p.LastModified, now),
		}
		if g.opts.ImagesEnabled {
			r.Images = p.Images
		}
		records = append(records, r)
	}
	return records, nil
}

func (g *Generator) topicPriority(t model.Topic, pages int, now time.Time) float64 {
	switch t.Type {
	case model.TopicSticky:
		return g.opts.StickyPriority
	case model.TopicGlobal:
		return g.opts.GlobalPriority
	case model.TopicAnnounce:
		return g.opts.AnnouncePriority
	}
	return Priority(t.LastPostTime, pages, now)
}

func (g *Generator) topicImages(t model.Topic, pages int) (ImageIndex, error) {
	var postIDs []model.PostID
	if pages > 1 {
		var err error
		if postIDs, err = g.store.VisiblePostIDs(t.ID); err != nil {
			return nil, err
		}
	}
	attachments, err := g.store.TopicImages(t.ID)
	if err != nil {
		return nil, err
	}
	return AssignImages(t.ID, pages, g.opts.PostsPerPage, postIDs, attachments, g.links.Attachment), nil
}

// topicRecords emits the first page of a topic and one record per
// continuation page. Moved topics emit nothing.
func (g *Generator) topicRecords(t model.Topic, now time.Time) ([]URLRecord, error) {
	if t.Status == model.TopicMoved || t.PostsApproved == 0 {
		return nil, nil
	}

	pages := PageCount(t.PostsApproved, g.opts.PostsPerPage)
	var images ImageIndex
	if t.HasAttachments && g.opts.ImagesEnabled {
		var err error
		if images, err = g.topicImages(t, pages); err != nil {
			return nil, err
		}
	}

	priority := g.topicPriority(t, pages, now)
	freq := FrequencyAt(t.LastPostTime, now)

	records := make([]URLRecord, 0, pages)
	records = append(records, URLRecord{
		Location:     g.links.Topic(t.ID, 0),
		LastModified: t.LastPostTime,
		Priority:     RoundPriority(priority),
		Frequency:    freq,
		Images:       images.Lookup(t.ID, 1),
	})
	for page := 2; page <= pages; page++ {
		records = append(records, URLRecord{
			Location:     g.links.Topic(t.ID, (page-1)*g.opts.PostsPerPage),
			LastModified: t.LastPostTime,
			Priority:     ContinuationPriority(priority),
			Frequency:    freq,
			Images:       images.Lookup(t.ID, page),
		})
	}
	return records, nil
}

func (g *Generator) render(kind Kind, records []URLRecord) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}
	kind, records = g.hooks.applyBeforeOutput(kind, records)
	return Render(kind, records, RenderOptions{
		Stylesheet: g.links.StylesheetURL(),
		Images:     g.opts.ImagesEnabled,
	})
}

// cached returns the document stored under key or builds, stores and
// returns a fresh one.
func (g *Generator) cached(key string, build func() ([]byte, error)) ([]byte, error) {
	if g.cache != nil {
		doc, ok, err := g.cache.Get(key)
		if err != nil {
			return nil, err
		}
		if ok {
			return doc, nil
		}
	}

	doc, err := build()
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		if err := g.cache.Put(key, doc, g.opts.CacheTTL); err != nil {
			// The document is still good; the next request rebuilds it.
			utils.Warn("sitemap", "cache put", err.Error())
		}
	}
	return doc, nil
}

func (g *Generator) Index() ([]byte, error) {
	records, err := g.IndexRecords()
	if err != nil {
		return nil, err
	}
	return g.render(KindIndex, records)
}

func (g *Generator) Current() ([]byte, error) {
	records, err := g.CurrentRecords()
	if err != nil {
		return nil, err
	}
	return g.render(KindURLSet, records)
}

func (g *Generator) Forum(id model.ForumID) ([]byte, error) {
	if err := g.checkForum(id); err != nil {
		return nil, err
	}
	return g.cached(fmt.Sprintf("forum_%d", id), func() ([]byte, error) {
		records, err := g.forumRecords(id)
		if err != nil {
			return nil, err
		}
		return g.render(KindURLSet, records)
	})
}

func (g *Generator) Topics(id model.ForumID) ([]byte, error) {
	if err := g.checkForum(id); err != nil {
		return nil, err
	}
	return g.cached(fmt.Sprintf("topics_%d", id), func() ([]byte, error) {
		records, err := g.topicListRecords(id)
		if err != nil {
			return nil, err
		}
		return g.render(KindURLSet, records)
	})
}

func (g *Generator) Additional() ([]byte, error) {
	records, err := g.AdditionalRecords()
	if err != nil {
		return nil, err
	}
	return g.render(KindURLSet, records)
}
