package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/zvonler/forumsitemap/model"
	"github.com/zvonler/forumsitemap/utils"
)

type ForumDB struct {
	Filename string
	DB       *sql.DB

	postForumsStmt       string
	forumStmt            string
	activeTopicsStmt     string
	inactiveTopicsStmt   string
	visiblePostsStmt     string
	topicImagesStmt      string
	insertForumStmt      string
	insertTopicStmt      string
	insertPostStmt       string
	insertAttachmentStmt string
}

const schema = `
CREATE TABLE IF NOT EXISTS forums (
	forum_id INTEGER NOT NULL PRIMARY KEY,
	forum_name TEXT NOT NULL DEFAULT '',
	forum_type INTEGER NOT NULL DEFAULT 1,
	forum_last_post_time INTEGER NOT NULL DEFAULT 0,
	forum_topics_approved INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS topics (
	topic_id INTEGER NOT NULL PRIMARY KEY,
	forum_id INTEGER NOT NULL,
	topic_title TEXT NOT NULL DEFAULT '',
	topic_last_post_time INTEGER NOT NULL DEFAULT 0,
	topic_status INTEGER NOT NULL DEFAULT 0,
	topic_type INTEGER NOT NULL DEFAULT 0,
	topic_posts_approved INTEGER NOT NULL DEFAULT 0,
	topic_attachment INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS posts (
	post_id INTEGER NOT NULL PRIMARY KEY,
	topic_id INTEGER NOT NULL,
	post_visibility INTEGER NOT NULL DEFAULT 1,
	post_time INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS attachments (
	attach_id INTEGER NOT NULL PRIMARY KEY,
	post_msg_id INTEGER NOT NULL,
	topic_id INTEGER NOT NULL,
	attach_comment TEXT NOT NULL DEFAULT '',
	mimetype TEXT NOT NULL DEFAULT '',
	is_orphan INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS acl_forums (
	group_name TEXT NOT NULL,
	forum_id INTEGER NOT NULL,
	f_list INTEGER NOT NULL DEFAULT 0,

	PRIMARY KEY(group_name, forum_id)
);

CREATE INDEX IF NOT EXISTS idx_topics_forum ON topics(forum_id, topic_last_post_time);
CREATE INDEX IF NOT EXISTS idx_topics_last_post ON topics(topic_last_post_time);
CREATE INDEX IF NOT EXISTS idx_posts_topic ON posts(topic_id, post_time);
CREATE INDEX IF NOT EXISTS idx_attachments_topic ON attachments(topic_id);
`

// OpenForumDB opens the sqlite forum content database, creating the schema
// only when the file does not exist yet.
func OpenForumDB(path string) (fdb *ForumDB, err error) {
	var existing bool
	if existing, err = utils.PathExists(path); err != nil {
		return
	}
	var db *sql.DB
	if db, err = openSQLite(path + "?_busy_timeout=5000"); err != nil {
		return
	}
	if !existing {
		if _, err = db.Exec(schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return newForumDB(path, db), nil
}

// OpenForumDBReadOnly opens an existing forum database without write access.
func OpenForumDBReadOnly(path string) (*ForumDB, error) {
	db, err := openSQLite("file:" + path + "?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	return newForumDB(path, db), nil
}

func newForumDB(path string, db *sql.DB) *ForumDB {
	fdb := &ForumDB{Filename: path, DB: db}
	fdb.initSQLStatements()
	return fdb
}

func openSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (fdb *ForumDB) Close() {
	fdb.DB.Close()
}

type RowsReceiver func(*sql.Rows) error

func (fdb *ForumDB) ForEachRow(receiver RowsReceiver, stmt string, params ...any) error {
	rows, err := fdb.DB.Query(stmt, params...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := receiver(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ForSingleRow returns false when the statement yields no rows.
func (fdb *ForumDB) ForSingleRow(receiver RowsReceiver, stmt string, params ...any) (found bool, err error) {
	singleReceiver := func(rows *sql.Rows) error {
		if found {
			return fmt.Errorf("received second row for %q", stmt)
		}
		found = true
		return receiver(rows)
	}
	err = fdb.ForEachRow(singleReceiver, stmt, params...)
	return
}

func unixTime(secs int64) time.Time {
	if secs == 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}

func timeUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func scanForum(rows *sql.Rows) (f model.Forum, err error) {
	var lastPost int64
	err = rows.Scan(&f.ID, &f.Name, &f.Type, &lastPost, &f.TopicsApproved)
	f.LastPostTime = unixTime(lastPost)
	return
}

func scanTopic(rows *sql.Rows) (t model.Topic, err error) {
	var lastPost int64
	err = rows.Scan(&t.ID, &t.ForumID, &t.Title, &lastPost, &t.Status, &t.Type, &t.PostsApproved, &t.HasAttachments)
	t.LastPostTime = unixTime(lastPost)
	return
}

// PostForums returns forums that hold topics, most recently active first.
func (fdb *ForumDB) PostForums() (forums []model.Forum, err error) {
	err = fdb.ForEachRow(
		func(rows *sql.Rows) error {
			f, err := scanForum(rows)
			forums = append(forums, f)
			return err
		},
		fdb.postForumsStmt, model.ForumPost)
	if err != nil {
		err = fmt.Errorf("reading forums: %w", err)
	}
	return
}

func (fdb *ForumDB) Forum(id model.ForumID) (forum model.Forum, found bool, err error) {
	found, err = fdb.ForSingleRow(
		func(rows *sql.Rows) (err error) {
			forum, err = scanForum(rows)
			return
		},
		fdb.forumStmt, id)
	if err != nil {
		err = fmt.Errorf("reading forum %d: %w", id, err)
	}
	return
}

// TopicsActiveSince returns topics with approved posts whose last post is
// after cutoff, newest first.
func (fdb *ForumDB) TopicsActiveSince(cutoff time.Time) ([]model.Topic, error) {
	topics, err := fdb.topics(fdb.activeTopicsStmt, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("reading active topics: %w", err)
	}
	return topics, nil
}

// ForumTopicsInactiveSince returns a forum's topics with approved posts whose
// last post is before cutoff, newest first.
func (fdb *ForumDB) ForumTopicsInactiveSince(forumID model.ForumID, cutoff time.Time) ([]model.Topic, error) {
	topics, err := fdb.topics(fdb.inactiveTopicsStmt, forumID, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("reading topics of forum %d: %w", forumID, err)
	}
	return topics, nil
}

func (fdb *ForumDB) topics(stmt string, params ...any) (topics []model.Topic, err error) {
	err = fdb.ForEachRow(
		func(rows *sql.Rows) error {
			t, err := scanTopic(rows)
			topics = append(topics, t)
			return err
		},
		stmt, params...)
	return
}

func (fdb *ForumDB) VisiblePostIDs(topicID model.TopicID) (ids []model.PostID, err error) {
	err = fdb.ForEachRow(
		func(rows *sql.Rows) error {
			var id model.PostID
			err := rows.Scan(&id)
			ids = append(ids, id)
			return err
		},
		fdb.visiblePostsStmt, topicID)
	if err != nil {
		err = fmt.Errorf("reading posts of topic %d: %w", topicID, err)
	}
	return
}

// TopicImages returns the non-orphan image attachments of a topic.
func (fdb *ForumDB) TopicImages(topicID model.TopicID) (images []model.Attachment, err error) {
	err = fdb.ForEachRow(
		func(rows *sql.Rows) error {
			var a model.Attachment
			err := rows.Scan(&a.ID, &a.PostID, &a.TopicID, &a.Comment, &a.MimeType, &a.Orphan)
			images = append(images, a)
			return err
		},
		fdb.topicImagesStmt, topicID)
	if err != nil {
		err = fmt.Errorf("reading attachments of topic %d: %w", topicID, err)
	}
	return
}

func (fdb *ForumDB) InsertOrUpdateForum(f model.Forum) error {
	_, err := fdb.DB.Exec(fdb.insertForumStmt,
		f.ID, f.Name, f.Type, timeUnix(f.LastPostTime), f.TopicsApproved)
	return err
}

func (fdb *ForumDB) InsertOrUpdateTopic(t model.Topic) error {
	_, err := fdb.DB.Exec(fdb.insertTopicStmt,
		t.ID, t.ForumID, t.Title, timeUnix(t.LastPostTime),
		t.Status, t.Type, t.PostsApproved, t.HasAttachments)
	return err
}

func (fdb *ForumDB) AddPosts(posts []model.Post) error {
	tx, err := fdb.DB.Begin()
	if err != nil {
		return err
	}
	for _, p := range posts {
		if _, err := tx.Exec(fdb.insertPostStmt, p.ID, p.TopicID, p.Visible, timeUnix(p.Time)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (fdb *ForumDB) AddAttachments(attachments []model.Attachment) error {
	tx, err := fdb.DB.Begin()
	if err != nil {
		return err
	}
	for _, a := range attachments {
		if _, err := tx.Exec(fdb.insertAttachmentStmt, a.ID, a.PostID, a.TopicID, a.Comment, a.MimeType, a.Orphan); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (fdb *ForumDB) initSQLStatements() {
	fdb.postForumsStmt = `
		SELECT
			forum_id, forum_name, forum_type, forum_last_post_time, forum_topics_approved
		FROM forums
		WHERE forum_type = ?
		ORDER BY forum_last_post_time DESC`

	fdb.forumStmt = `
		SELECT
			forum_id, forum_name, forum_type, forum_last_post_time, forum_topics_approved
		FROM forums
		WHERE forum_id = ?`

	fdb.activeTopicsStmt = `
		SELECT
			topic_id, forum_id, topic_title, topic_last_post_time, topic_status,
			topic_type, topic_posts_approved, topic_attachment
		FROM topics
		WHERE
			    topic_last_post_time > ?
			AND topic_posts_approved > 0
		ORDER BY topic_last_post_time DESC`

	fdb.inactiveTopicsStmt = `
		SELECT
			topic_id, forum_id, topic_title, topic_last_post_time, topic_status,
			topic_type, topic_posts_approved, topic_attachment
		FROM topics
		WHERE
			    forum_id = ?
			AND topic_posts_approved > 0
			AND topic_last_post_time < ?
		ORDER BY topic_last_post_time DESC`

	fdb.visiblePostsStmt = `
		SELECT post_id
		FROM posts
		WHERE
			    topic_id = ?
			AND post_visibility = 1
		ORDER BY post_time, post_id`

	fdb.topicImagesStmt = `
		SELECT
			attach_id, post_msg_id, topic_id, attach_comment, mimetype, is_orphan
		FROM attachments
		WHERE
			    topic_id = ?
			AND is_orphan = 0
			AND mimetype LIKE '%image%'
		ORDER BY attach_id`

	fdb.insertForumStmt = `
		INSERT INTO forums
			(forum_id, forum_name, forum_type, forum_last_post_time, forum_topics_approved)
		VALUES
			(?, ?, ?, ?, ?)
		ON CONFLICT(forum_id) DO UPDATE SET
			forum_name = excluded.forum_name,
			forum_type = excluded.forum_type,
			forum_last_post_time = excluded.forum_last_post_time,
			forum_topics_approved = excluded.forum_topics_approved`

	fdb.insertTopicStmt = `
		INSERT INTO topics
			(topic_id, forum_id, topic_title, topic_last_post_time, topic_status,
			 topic_type, topic_posts_approved, topic_attachment)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(topic_id) DO UPDATE SET
			forum_id = excluded.forum_id,
			topic_title = excluded.topic_title,
			topic_last_post_time = excluded.topic_last_post_time,
			topic_status = excluded.topic_status,
			topic_type = excluded.topic_type,
			topic_posts_approved = excluded.topic_posts_approved,
			topic_attachment = excluded.topic_attachment`

	fdb.insertPostStmt = `
		INSERT INTO posts
			(post_id, topic_id, post_visibility, post_time)
		VALUES
			(?, ?, ?, ?)
		ON CONFLICT DO NOTHING`

	fdb.insertAttachmentStmt = `
		INSERT INTO attachments
			(attach_id, post_msg_id, topic_id, attach_comment, mimetype, is_orphan)
		VALUES
			(?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`
}
