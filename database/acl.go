package database

import (
	"database/sql"
	"fmt"

	"github.com/zvonler/forumsitemap/model"
)

// GroupACL answers forum list permissions for one user group, read from the
// acl_forums table. Crawlers are anonymous so the server uses the guest group.
type GroupACL struct {
	fdb   *ForumDB
	group string
}

func (fdb *ForumDB) GroupACL(group string) *GroupACL {
	return &GroupACL{fdb: fdb, group: group}
}

func (acl *GroupACL) CanList(forumID model.ForumID) (allowed bool, err error) {
	_, err = acl.fdb.ForSingleRow(
		func(rows *sql.Rows) error {
			return rows.Scan(&allowed)
		},
		`SELECT f_list FROM acl_forums WHERE group_name = ? AND forum_id = ?`,
		acl.group, forumID)
	if err != nil {
		err = fmt.Errorf("reading permissions of %s for forum %d: %w", acl.group, forumID, err)
	}
	return
}

func (fdb *ForumDB) SetListPermission(group string, forumID model.ForumID, allowed bool) error {
	_, err := fdb.DB.Exec(`
		INSERT INTO acl_forums
			(group_name, forum_id, f_list)
		VALUES
			(?, ?, ?)
		ON CONFLICT(group_name, forum_id) DO UPDATE SET
			f_list = excluded.f_list`,
		group, forumID, allowed)
	return err
}
