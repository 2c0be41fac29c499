package sitemap

import (
	"github.com/samber/lo"
	"github.com/zvonler/forumsitemap/model"
)

// ImageIndex holds the images shown on each page of each topic.
type ImageIndex map[model.TopicID]map[int][]Image

func (ix ImageIndex) Add(topicID model.TopicID, page int, img Image) {
	pages, ok := ix[topicID]
	if !ok {
		pages = make(map[int][]Image)
		ix[topicID] = pages
	}
	pages[page] = append(pages[page], img)
}

// Lookup returns the images on one page of a topic, or nil.
func (ix ImageIndex) Lookup(topicID model.TopicID, page int) []Image {
	return ix[topicID][page]
}

// AssignImages places each attachment on the page holding its post. Posts
// are split into pages of postsPerPage in the order given. Single page
// topics get every attachment on page 1 and postIDs is ignored. Attachments
// whose post is not in postIDs are dropped.
func AssignImages(topicID model.TopicID, pages, postsPerPage int, postIDs []model.PostID,
	attachments []model.Attachment, imageURL func(model.AttachmentID) string) ImageIndex {

	ix := make(ImageIndex)
	toImage := func(a model.Attachment) Image {
		return Image{URL: imageURL(a.ID), Caption: a.Comment}
	}

	if pages <= 1 {
		for _, a := range attachments {
			ix.Add(topicID, 1, toImage(a))
		}
		return ix
	}

	if postsPerPage < 1 {
		postsPerPage = 1
	}
	pageOfPost := make(map[model.PostID]int, len(postIDs))
	for i, chunk := range lo.Chunk(postIDs, postsPerPage) {
		for _, id := range chunk {
			pageOfPost[id] = i + 1
		}
	}

	for _, a := range attachments {
		if page, ok := pageOfPost[a.PostID]; ok {
			ix.Add(topicID, page, toImage(a))
		}
	}
	return ix
}
