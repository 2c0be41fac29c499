// Package additional reads the static list of extra pages published in the
// additional sitemap.
package additional

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/zvonler/forumsitemap/sitemap"
	"gopkg.in/yaml.v2"
)

type Image struct {
	URL     string `yaml:"url"`
	Caption string `yaml:"caption"`
}

type Page struct {
	Loc     string  `yaml:"loc"`
	LastMod int64   `yaml:"lastmod"`
	Images  []Image `yaml:"images"`
}

type File struct {
	Pages []Page `yaml:"pages"`
}

func LoadFile(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates an additional pages document. Unknown keys are
// rejected.
func Parse(content []byte) (*File, error) {
	var f File
	if err := yaml.UnmarshalStrict(content, &f); err != nil {
		return nil, err
	}
	for i, p := range f.Pages {
		if err := checkAbsolute(p.Loc); err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		for _, img := range p.Images {
			if err := checkAbsolute(img.URL); err != nil {
				return nil, fmt.Errorf("page %d image: %w", i+1, err)
			}
		}
	}
	return &f, nil
}

func checkAbsolute(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%q is not an absolute URL", raw)
	}
	return nil
}

// Records converts the pages to sitemap records. Priority and frequency are
// left for the generator.
func (f *File) Records() []sitemap.URLRecord {
	records := make([]sitemap.URLRecord, 0, len(f.Pages))
	for _, p := range f.Pages {
		r := sitemap.URLRecord{Location: p.Loc}
		if p.LastMod > 0 {
			r.LastModified = time.Unix(p.LastMod, 0).UTC()
		}
		for _, img := range p.Images {
			r.Images = append(r.Images, sitemap.Image{URL: img.URL, Caption: img.Caption})
		}
		records = append(records, r)
	}
	return records
}

// Hook appends the file's pages to whatever earlier hooks supplied.
func (f *File) Hook() sitemap.RecordsHook {
	return func(records []sitemap.URLRecord) []sitemap.URLRecord {
		return append(records, f.Records()...)
	}
}
