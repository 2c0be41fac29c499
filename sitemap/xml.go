package sitemap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	ContentType = "application/xml; charset=UTF-8"

	sitemapNS        = "http://www.sitemaps.org/schemas/sitemap/0.9"
	imageNS          = "http://www.google.com/schemas/sitemap-image/1.1"
	xsiNS            = "http://www.w3.org/2001/XMLSchema-instance"
	indexSchemaLoc   = sitemapNS + " " + sitemapNS + "/siteindex.xsd"
	urlsetSchemaLoc  = sitemapNS + " " + sitemapNS + "/sitemap.xsd"
	lastModifiedForm = "2006-01-02T15:04:05+00:00"
)

type xmlSitemapIndex struct {
	XMLName        xml.Name     `xml:"sitemapindex"`
	XMLNSXsi       string       `xml:"xmlns:xsi,attr"`
	SchemaLocation string       `xml:"xsi:schemaLocation,attr"`
	XMLNS          string       `xml:"xmlns,attr"`
	Sitemaps       []xmlSitemap `xml:"sitemap"`
}

type xmlSitemap struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type xmlURLSet struct {
	XMLName        xml.Name `xml:"urlset"`
	XMLNSXsi       string   `xml:"xmlns:xsi,attr"`
	SchemaLocation string   `xml:"xsi:schemaLocation,attr"`
	XMLNS          string   `xml:"xmlns,attr"`
	XMLNSImage     string   `xml:"xmlns:image,attr"`
	URLs           []xmlURL `xml:"url"`
}

type xmlURL struct {
	Loc        string     `xml:"loc"`
	LastMod    string     `xml:"lastmod,omitempty"`
	ChangeFreq string     `xml:"changefreq"`
	Priority   string     `xml:"priority"`
	Images     []xmlImage `xml:"image:image"`
}

type xmlImage struct {
	Loc     string `xml:"image:loc"`
	Caption string `xml:"image:caption"`
}

// RenderOptions controls document-wide rendering choices.
type RenderOptions struct {
	Stylesheet string
	Images     bool
}

func formatLastModified(t time.Time) string {
	if t.IsZero() || t.Unix() == 0 {
		return ""
	}
	return t.UTC().Format(lastModifiedForm)
}

func formatPriority(p float64) string {
	return strconv.FormatFloat(RoundPriority(p), 'f', 1, 64)
}

func buildTree(kind Kind, records []URLRecord, opts RenderOptions) (any, error) {
	switch kind {
	case KindIndex:
		doc := xmlSitemapIndex{
			XMLNSXsi:       xsiNS,
			SchemaLocation: indexSchemaLoc,
			XMLNS:          sitemapNS,
			Sitemaps:       make([]xmlSitemap, 0, len(records)),
		}
		for _, r := range records {
			doc.Sitemaps = append(doc.Sitemaps, xmlSitemap{
				Loc:     r.Location,
				LastMod: formatLastModified(r.LastModified),
			})
		}
		return doc, nil
	case KindURLSet:
		doc := xmlURLSet{
			XMLNSXsi:       xsiNS,
			SchemaLocation: urlsetSchemaLoc,
			XMLNS:          sitemapNS,
			XMLNSImage:     imageNS,
			URLs:           make([]xmlURL, 0, len(records)),
		}
		for _, r := range records {
			u := xmlURL{
				Loc:        r.Location,
				LastMod:    formatLastModified(r.LastModified),
				ChangeFreq: string(r.Frequency),
				Priority:   formatPriority(r.Priority),
			}
			if opts.Images {
				for _, img := range r.Images {
					u.Images = append(u.Images, xmlImage{Loc: img.URL, Caption: img.Caption})
				}
			}
			doc.URLs = append(doc.URLs, u)
		}
		return doc, nil
	}
	return nil, fmt.Errorf("unknown sitemap kind %q", kind)
}

// Render serializes records as a complete sitemap document of the given
// kind, preceded by an XSL stylesheet processing instruction.
func Render(kind Kind, records []URLRecord, opts RenderOptions) ([]byte, error) {
	tree, err := buildTree(kind, records, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if opts.Stylesheet != "" {
		buf.WriteString(`<?xml-stylesheet type="text/xsl" href="`)
		if err := xml.EscapeText(&buf, []byte(opts.Stylesheet)); err != nil {
			return nil, err
		}
		buf.WriteString("\" ?>\n")
	}

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "\t")
	if err := enc.Encode(tree); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", kind, err)
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

type parsedIndex struct {
	Sitemaps []struct {
		Loc     string `xml:"loc"`
		LastMod string `xml:"lastmod"`
	} `xml:"sitemap"`
}

type parsedURLSet struct {
	URLs []struct {
		Loc        string `xml:"loc"`
		LastMod    string `xml:"lastmod"`
		ChangeFreq string `xml:"changefreq"`
		Priority   string `xml:"priority"`
		Images     []struct {
			Loc     string `xml:"http://www.google.com/schemas/sitemap-image/1.1 loc"`
			Caption string `xml:"http://www.google.com/schemas/sitemap-image/1.1 caption"`
		} `xml:"http://www.google.com/schemas/sitemap-image/1.1 image"`
	} `xml:"url"`
}

func rootElement(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return "", errors.New("document has no root element")
		}
		if err != nil {
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

func parseLastModified(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad lastmod %q: %w", raw, err)
	}
	return t.UTC(), nil
}

// Parse reads a sitemap index or urlset document back into records.
func Parse(data []byte) (Kind, []URLRecord, error) {
	root, err := rootElement(data)
	if err != nil {
		return "", nil, err
	}

	var records []URLRecord
	switch Kind(root) {
	case KindIndex:
		var doc parsedIndex
		if err := xml.Unmarshal(data, &doc); err != nil {
			return "", nil, err
		}
		for _, s := range doc.Sitemaps {
			lastMod, err := parseLastModified(s.LastMod)
			if err != nil {
				return "", nil, err
			}
			records = append(records, URLRecord{Location: strings.TrimSpace(s.Loc), LastModified: lastMod})
		}
		return KindIndex, records, nil

	case KindURLSet:
		var doc parsedURLSet
		if err := xml.Unmarshal(data, &doc); err != nil {
			return "", nil, err
		}
		for _, u := range doc.URLs {
			r := URLRecord{
				Location:  strings.TrimSpace(u.Loc),
				Frequency: Frequency(strings.TrimSpace(u.ChangeFreq)),
			}
			if r.LastModified, err = parseLastModified(u.LastMod); err != nil {
				return "", nil, err
			}
			if p := strings.TrimSpace(u.Priority); p != "" {
				if r.Priority, err = strconv.ParseFloat(p, 64); err != nil {
					return "", nil, fmt.Errorf("bad priority %q: %w", p, err)
				}
			}
			for _, img := range u.Images {
				r.Images = append(r.Images, Image{URL: strings.TrimSpace(img.Loc), Caption: img.Caption})
			}
			records = append(records, r)
		}
		return KindURLSet, records, nil
	}
	return "", nil, fmt.Errorf("unknown sitemap root element %q", root)
}
