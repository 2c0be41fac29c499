package utils

import (
	"bytes"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrimmedURL(t *testing.T) {
	withSlash, err := url.Parse("http://somewhere.com/")
	require.Equal(t, nil, err)
	withoutSlash, err := url.Parse("http://somewhere.com")
	require.Equal(t, nil, err)

	require.Equal(t, TrimmedURL(withSlash), TrimmedURL(withoutSlash))

	withSlash, err = url.Parse("http://somewhere.com/with/path/")
	require.Equal(t, nil, err)
	withoutSlash, err = url.Parse("http://somewhere.com/with/path")
	require.Equal(t, nil, err)

	require.Equal(t, TrimmedURL(withSlash), TrimmedURL(withoutSlash))
}

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()
	stat, err := PathExists(tmpDir)
	require.Equal(t, nil, err)
	require.Equal(t, true, stat)

	stat, err = PathExists(tmpDir + "/non-existent-path")
	require.Equal(t, nil, err)
	require.Equal(t, false, stat)

	subdir := filepath.Join(tmpDir, "unreadable")
	err = os.MkdirAll(subdir, 0700)
	require.Equal(t, nil, err)

	hiddenFile := filepath.Join(subdir, "somefile.tgz")
	fd, err := os.Create(hiddenFile)
	require.Equal(t, nil, err)
	fd.Close()

	stat, err = PathExists(hiddenFile)
	require.Equal(t, nil, err)
	require.Equal(t, true, stat)

	if os.Geteuid() == 0 {
		// root ignores directory permissions
		return
	}

	os.Chmod(subdir, 0)

	stat, err = PathExists(hiddenFile)
	require.True(t, os.IsPermission(err))

	os.Chmod(subdir, 0700)
}

func TestParseBaseURL(t *testing.T) {
	u, err := ParseBaseURL("https://board.example/forum/")
	require.Equal(t, nil, err)
	require.Equal(t, "https://board.example/forum", u.String())

	u, err = ParseBaseURL("http://board.example")
	require.Equal(t, nil, err)
	require.Equal(t, "http://board.example", u.String())

	_, err = ParseBaseURL("/relative/path")
	require.Error(t, err)

	_, err = ParseBaseURL("ftp://board.example")
	require.Error(t, err)

	_, err = ParseBaseURL("https://")
	require.Error(t, err)
}

func TestLogLine(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	flags := log.Flags()
	log.SetFlags(0)
	defer func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	}()

	Warn("cache", "prune", "removed=3")
	require.Equal(t, "[WARN] module=cache op=prune removed=3\n", buf.String())
}
