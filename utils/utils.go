package utils

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

func TrimmedURL(u *url.URL) *url.URL {
	if strings.HasSuffix(u.RequestURI(), "/") {
		// Board and service URLs are joined with paths that start with '/'
		if trimmed, err := url.Parse(strings.TrimRight(u.String(), "/")); err != nil {
			panic(fmt.Sprintf("Bad URL: %v", err))
		} else {
			return trimmed
		}
	}
	return u
}

// ParseBaseURL parses an absolute http(s) URL and strips trailing slashes.
func ParseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("bad URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("URL %q must be absolute http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("URL %q has no host", raw)
	}
	return TrimmedURL(u), nil
}

func PathExists(path string) (res bool, err error) {
	_, statErr := os.Stat(path)
	if statErr == nil {
		res = true
	} else if !os.IsNotExist(statErr) {
		err = statErr
	}
	return
}
