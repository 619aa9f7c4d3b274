package models

import (
	"time"
)

// DigestMode определяет способ доставки уведомлений подписчику.
type DigestMode int

const (
	// DigestUseDefault — сентинел «использовать настройку пользователя».
	DigestUseDefault DigestMode = -1

	DigestNone     DigestMode = 0 // немедленные письма по каждому посту
	DigestFull     DigestMode = 1 // один дайджест в день с полными постами
	DigestSubjects DigestMode = 2 // дайджест только с темами постов
)

// Valid сообщает, является ли значение допустимым режимом дайджеста.
// Сентинел DigestUseDefault допустим только как сброс настройки.
func (m DigestMode) Valid() bool {
	switch m {
	case DigestUseDefault, DigestNone, DigestFull, DigestSubjects:
		return true
	default:
		return false
	}
}

type Subscription struct {
	UserID    int64
	ForumID   int64
	CreatedAt time.Time
}

// DigestPreference хранит режим дайджеста пользователя для конкретного
// форума. Отсутствие записи означает DigestUseDefault.
type DigestPreference struct {
	UserID  int64
	ForumID int64
	Mode    DigestMode
}

// TrackingOverride — запись об отключении отслеживания форума.
// Само существование записи означает «отслеживание выключено»:
// инвертированная семантика, отсутствие записи — политика по умолчанию.
type TrackingOverride struct {
	UserID  int64
	ForumID int64
}
