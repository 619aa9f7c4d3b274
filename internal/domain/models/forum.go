package models

// TrackingMode определяет режим отслеживания прочитанности постов форума.
type TrackingMode int

const (
	TrackingOff TrackingMode = iota
	TrackingOptional
	TrackingForced
)

// SubscriptionMode определяет режим подписки на форум.
type SubscriptionMode int

const (
	SubscriptionChoose SubscriptionMode = iota
	SubscriptionForced
	SubscriptionInitial
	SubscriptionDisallowed
)

// GroupMode определяет групповой режим модуля курса.
type GroupMode int

const (
	GroupsNone GroupMode = iota
	GroupsSeparate
	GroupsVisible
)

type Forum struct {
	ID               int64
	CourseID         int64
	Name             string
	TrackingMode     TrackingMode
	SubscriptionMode SubscriptionMode
	QAndA            bool
}

type Course struct {
	ID        int64
	ShortName string
	FullName  string
}

type CourseModule struct {
	ID        int64
	ForumID   int64
	ContextID int64
	GroupMode GroupMode
}
