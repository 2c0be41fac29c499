package sitemap

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zvonler/forumsitemap/model"
)

func testImageURL(id model.AttachmentID) string {
	return fmt.Sprintf("https://board.example/download/file.php?id=%d&mode=view", id)
}

func TestAssignImagesMultiPage(t *testing.T) {
	posts := []model.PostID{11, 12, 13, 14, 15, 16}
	attachments := []model.Attachment{
		{ID: 1, PostID: 13, Comment: "second page"},
		{ID: 2, PostID: 16, Comment: "third page"},
		{ID: 3, PostID: 14, Comment: "also second"},
		{ID: 4, PostID: 99, Comment: "hidden post"},
	}

	ix := AssignImages(7, 3, 2, posts, attachments, testImageURL)

	require.Empty(t, ix.Lookup(7, 1))
	require.Equal(t, []Image{
		{URL: testImageURL(1), Caption: "second page"},
		{URL: testImageURL(3), Caption: "also second"},
	}, ix.Lookup(7, 2))
	require.Equal(t, []Image{{URL: testImageURL(2), Caption: "third page"}}, ix.Lookup(7, 3))
	require.Empty(t, ix.Lookup(7, 4))
	require.Empty(t, ix.Lookup(8, 2))
}

func TestAssignImagesSinglePage(t *testing.T) {
	attachments := []model.Attachment{
		{ID: 5, PostID: 1, Comment: "a"},
		{ID: 6, PostID: 2},
	}

	ix := AssignImages(9, 1, 10, nil, attachments, testImageURL)

	require.Equal(t, []Image{
		{URL: testImageURL(5), Caption: "a"},
		{URL: testImageURL(6)},
	}, ix.Lookup(9, 1))
	require.Empty(t, ix.Lookup(9, 2))
}

func TestImageIndexNil(t *testing.T) {
	var ix ImageIndex
	require.Nil(t, ix.Lookup(1, 1))
}
