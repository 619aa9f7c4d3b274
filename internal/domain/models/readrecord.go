package models

import (
	"time"
)

// ReadRecord — отметка о прочтении поста пользователем. Поля DiscussionID
// и ForumID денормализованы для массовых удалений по области.
type ReadRecord struct {
	UserID       int64
	PostID       int64
	DiscussionID int64
	ForumID      int64
	FirstRead    time.Time
	LastRead     time.Time
}

// ReadRecordFilter задаёт область удаления отметок о прочтении.
// Хотя бы одно поле должно быть ненулевым.
type ReadRecordFilter struct {
	UserID       int64
	PostID       int64
	DiscussionID int64
	ForumID      int64
}

// Empty сообщает, что фильтр не ограничивает область удаления.
func (f ReadRecordFilter) Empty() bool {
	return f.UserID == 0 && f.PostID == 0 && f.DiscussionID == 0 && f.ForumID == 0
}
