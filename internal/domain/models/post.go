package models

import (
	"time"
)

// MailStatus определяет статус рассылки поста.
type MailStatus int

const (
	MailPending MailStatus = iota
	MailSent
	MailError
)

// Сентинелы группы обсуждения: GroupAll видна всем группам,
// GroupNone означает контекст без групп.
const (
	GroupAll  int64 = -1
	GroupNone int64 = 0
)

type Post struct {
	ID           int64
	DiscussionID int64
	ParentID     int64 // 0 — корневой пост обсуждения
	AuthorID     int64
	Subject      string
	Body         string
	BodyFormat   string
	Created      time.Time
	Modified     time.Time
	Mailed       MailStatus
	MailNow      bool
}

// IsRoot сообщает, является ли пост первым постом обсуждения.
func (p *Post) IsRoot() bool {
	return p.ParentID == 0
}

type Discussion struct {
	ID             int64
	ForumID        int64
	Name           string
	GroupID        int64 // GroupAll, GroupNone или конкретная группа
	TimeStart      time.Time
	TimeEnd        time.Time
	LastPostID     int64
	LastModified   time.Time
	LastModifiedBy int64
}

// VisibleAt сообщает, виден ли пост обсуждения в заданный момент
// с учётом временного окна (нулевое время — без ограничения).
func (d *Discussion) VisibleAt(t time.Time) bool {
	if !d.TimeStart.IsZero() && t.Before(d.TimeStart) {
		return false
	}

	if !d.TimeEnd.IsZero() && !t.Before(d.TimeEnd) {
		return false
	}

	return true
}
