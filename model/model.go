package model

import (
	"time"
)

type ForumID uint
type TopicID uint
type PostID uint
type AttachmentID uint

type ForumType int

const (
	ForumCategory ForumType = iota
	ForumPost
	ForumLink
)

type TopicType int

const (
	TopicNormal TopicType = iota
	TopicSticky
	TopicAnnounce
	TopicGlobal
)

type TopicStatus int

const (
	TopicUnlocked TopicStatus = iota
	TopicLocked
	TopicMoved
)

type Forum struct {
	ID             ForumID
	Name           string
	Type           ForumType
	LastPostTime   time.Time
	TopicsApproved uint
}

type Topic struct {
	ID             TopicID
	ForumID        ForumID
	Title          string
	LastPostTime   time.Time
	Status         TopicStatus
	Type           TopicType
	PostsApproved  uint
	HasAttachments bool
}

type Post struct {
	ID      PostID
	TopicID TopicID
	Visible bool
	Time    time.Time
}

type Attachment struct {
	ID       AttachmentID
	PostID   PostID
	TopicID  TopicID
	Comment  string
	MimeType string
	Orphan   bool
}
