// Package checker crawls a published sitemap the way a search engine would
// and reports what it found.
package checker

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/caffix/cloudflare-roundtripper/cfrt"
	"github.com/gocolly/colly"
	"github.com/temoto/robotstxt"
	"github.com/zvonler/forumsitemap/sitemap"
	"github.com/zvonler/forumsitemap/utils"
)

type role string

const (
	roleStart   role = "start"
	roleSitemap role = "sitemap"
	rolePage    role = "page"
)

type Options struct {
	Delay      time.Duration
	CheckPages bool
	// MaxPages limits page checks; zero checks every listed page.
	MaxPages   int
	Cloudflare bool
	UserAgent  string
}

type SitemapReport struct {
	URL    string
	Kind   sitemap.Kind
	URLs   int
	Images int
}

type Failure struct {
	URL    string
	Status int
	Err    string
}

type Report struct {
	Start           string
	Sitemaps        []SitemapReport
	PagesChecked    int
	PageFailures    []Failure
	SitemapFailures []Failure
}

type Checker struct {
	opts      Options
	collector *colly.Collector
	report    *Report
	queued    int
}

func newCollector(opts Options) (*colly.Collector, error) {
	agent := opts.UserAgent
	if agent == "" {
		agent = "forumsitemap-check"
	}
	collector := colly.NewCollector(
		colly.IgnoreRobotsTxt(),
		colly.UserAgent(agent),
	)
	if opts.Cloudflare {
		transport, err :=
			cfrt.New(&http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   15 * time.Second,
					KeepAlive: 15 * time.Second,
				}).DialContext,
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			})
		if err != nil {
			return nil, err
		}
		collector.WithTransport(transport)
	}
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       opts.Delay,
	}); err != nil {
		return nil, err
	}
	return collector, nil
}

func New(opts Options) (*Checker, error) {
	collector, err := newCollector(opts)
	if err != nil {
		return nil, err
	}
	c := &Checker{opts: opts, collector: collector}

	collector.OnRequest(func(r *colly.Request) {
		utils.Info("checker", "visit", r.URL.String())
	})
	collector.OnResponse(c.handleResponse)
	collector.OnHTML("head", c.handleHead)
	collector.OnError(c.handleError)

	return c, nil
}

// Check crawls from start, which may be a robots.txt, a sitemap index, a
// urlset or an HTML page carrying <link rel="sitemap">. The returned error
// is only about start itself; failures further down are in the report.
func (c *Checker) Check(start string) (*Report, error) {
	c.report = &Report{Start: start}
	c.queued = 0
	if err := c.visit(start, roleStart); err != nil {
		return c.report, fmt.Errorf("fetching %s: %w", start, err)
	}
	if len(c.report.Sitemaps)+len(c.report.SitemapFailures) == 0 {
		c.report.SitemapFailures = append(c.report.SitemapFailures,
			Failure{URL: start, Err: "no sitemap found"})
	}
	return c.report, nil
}

// visit returns the request error unless handleError already recorded it.
func (c *Checker) visit(u string, r role) error {
	ctx := colly.NewContext()
	ctx.Put("role", string(r))
	err := c.collector.Request("GET", u, nil, ctx, nil)
	if errors.Is(err, colly.ErrAlreadyVisited) || ctx.Get("recorded") != "" {
		return nil
	}
	return err
}

// follow visits a URL found in a sitemap, robots.txt or page head. Requests
// colly refuses, such as malformed URLs, are reported as failures.
func (c *Checker) follow(u string, r role) {
	err := c.visit(u, r)
	if err == nil {
		return
	}
	f := Failure{URL: u, Err: err.Error()}
	if r == rolePage {
		c.report.PagesChecked++
		c.report.PageFailures = append(c.report.PageFailures, f)
		return
	}
	utils.Warn("checker", "sitemap", fmt.Sprintf("url=%s err=%v", u, err))
	c.report.SitemapFailures = append(c.report.SitemapFailures, f)
}

func roleOf(ctx *colly.Context) role {
	return role(ctx.Get("role"))
}

func isXML(r *colly.Response) bool {
	if strings.Contains(strings.ToLower(r.Headers.Get("Content-Type")), "xml") {
		return true
	}
	return bytes.HasPrefix(bytes.TrimSpace(r.Body), []byte("<?xml"))
}

func (c *Checker) handleResponse(r *colly.Response) {
	switch current := roleOf(r.Ctx); {
	case current == rolePage:
		c.report.PagesChecked++
	case strings.HasSuffix(r.Request.URL.Path, "/robots.txt"):
		c.handleRobots(r)
	case isXML(r):
		c.handleSitemap(r)
	case current == roleSitemap:
		c.failSitemap(r, errors.New("not an XML sitemap"))
	}
}

func (c *Checker) handleRobots(r *colly.Response) {
	robots, err := robotstxt.FromBytes(r.Body)
	if err != nil {
		c.failSitemap(r, err)
		return
	}
	for _, u := range robots.Sitemaps {
		c.follow(u, roleSitemap)
	}
}

func (c *Checker) handleSitemap(r *colly.Response) {
	kind, records, err := sitemap.Parse(r.Body)
	if err != nil {
		c.failSitemap(r, err)
		return
	}

	found := SitemapReport{URL: r.Request.URL.String(), Kind: kind, URLs: len(records)}
	for _, rec := range records {
		found.Images += len(rec.Images)
	}
	c.report.Sitemaps = append(c.report.Sitemaps, found)

	for _, rec := range records {
		switch {
		case kind == sitemap.KindIndex:
			c.follow(rec.Location, roleSitemap)
		case c.opts.CheckPages && (c.opts.MaxPages == 0 || c.queued < c.opts.MaxPages):
			c.queued++
			c.follow(rec.Location, rolePage)
		}
	}
}

// handleHead follows sitemap links advertised by the start page.
func (c *Checker) handleHead(e *colly.HTMLElement) {
	if roleOf(e.Request.Ctx) != roleStart {
		return
	}
	e.DOM.Find(`link[rel="sitemap"]`).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			u := e.Request.AbsoluteURL(href)
			if u == "" {
				u = href
			}
			c.follow(u, roleSitemap)
		}
	})
}

func failure(r *colly.Response, err error) Failure {
	return Failure{URL: r.Request.URL.String(), Status: r.StatusCode, Err: err.Error()}
}

func (c *Checker) failSitemap(r *colly.Response, err error) {
	utils.Warn("checker", "sitemap", fmt.Sprintf("url=%s err=%v", r.Request.URL, err))
	c.report.SitemapFailures = append(c.report.SitemapFailures, failure(r, err))
}

func (c *Checker) handleError(r *colly.Response, err error) {
	switch roleOf(r.Ctx) {
	case rolePage:
		r.Ctx.Put("recorded", "1")
		c.report.PagesChecked++
		c.report.PageFailures = append(c.report.PageFailures, failure(r, err))
	case roleSitemap:
		r.Ctx.Put("recorded", "1")
		c.failSitemap(r, err)
	}
}
