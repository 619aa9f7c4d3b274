package models

import (
	"time"
)

// DigestQueueEntry — отложенное обязательство доставки поста в дайджесте.
// Создаётся, когда подписчику нужен дайджест вместо немедленного письма,
// и удаляется при обработке дайджеста.
type DigestQueueEntry struct {
	ID           int64
	UserID       int64
	DiscussionID int64
	PostID       int64
	PostTime     time.Time
}

// RenderedBody — результат преобразования тела поста хост-системой.
type RenderedBody struct {
	Text string
	HTML string
}

// MailMessage — исходящее письмо для почтового транспорта.
type MailMessage struct {
	From     string
	FromName string
	To       string
	ToName   string
	Subject  string
	Text     string
	HTML     string
	Headers  map[string]string
}
