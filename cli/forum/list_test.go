package forum

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zvonler/forumsitemap/model"
	"github.com/zvonler/forumsitemap/sitemap"
)

func TestFormatRows(t *testing.T) {
	rows := []forumRow{
		{
			forum:       model.Forum{ID: 1, Name: "General", TopicsApproved: 40, LastPostTime: time.Unix(1700000000, 0)},
			Eligibility: sitemap.Eligibility{Listable: true, AboveThreshold: true},
		},
		{
			forum:       model.Forum{ID: 12, Name: "Staff room", TopicsApproved: 3},
			Eligibility: sitemap.Eligibility{Excluded: true},
		},
	}

	lines := formatRows(rows)
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "ForumID"))
	require.Contains(t, lines[1], "2023-11-14 22:13")
	require.True(t, strings.HasSuffix(strings.TrimSpace(lines[1]), "yes"))
	require.Contains(t, lines[2], "never")
	require.True(t, strings.HasSuffix(strings.TrimSpace(lines[2]), "no"))

	var buf bytes.Buffer
	printRows(&buf, rows, lines, false)
	require.Equal(t, strings.Join(lines, "\n")+"\n", buf.String())

	buf.Reset()
	printRows(&buf, rows, lines, true)
	require.Contains(t, buf.String(), "\x1b[")
	require.Contains(t, buf.String(), "Staff room")
}
