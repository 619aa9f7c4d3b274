package models

// User — профиль пользователя, получаемый из core API хост-системы.
type User struct {
	ID            int64
	Email         string
	FirstName     string
	LastName      string
	TrackForums   bool       // персональная настройка «отслеживать форумы»
	DefaultDigest DigestMode // дайджест по умолчанию для всех форумов
	MarksOwnRead  bool       // пользователь сам помечает посты прочитанными
	EmailStopped  bool
	Guest         bool
	Deleted       bool
}

// FullName возвращает отображаемое имя получателя письма.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}

	if u.LastName == "" {
		return u.FirstName
	}

	return u.FirstName + " " + u.LastName
}

// Mailable сообщает, можно ли отправлять пользователю почту.
func (u *User) Mailable() bool {
	return !u.Guest && !u.Deleted && !u.EmailStopped && u.Email != ""
}
