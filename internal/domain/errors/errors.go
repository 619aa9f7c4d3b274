package errors

import (
	"fmt"
)

type ErrPostNotFound struct {
	PostID int64
}

func (e *ErrPostNotFound) Error() string {
	return fmt.Sprintf("пост не найден: %d", e.PostID)
}

func (e *ErrPostNotFound) Is(target error) bool {
	_, ok := target.(*ErrPostNotFound)
	return ok
}

type ErrDiscussionNotFound struct {
	DiscussionID int64
}

func (e *ErrDiscussionNotFound) Error() string {
	return fmt.Sprintf("обсуждение не найдено: %d", e.DiscussionID)
}

func (e *ErrDiscussionNotFound) Is(target error) bool {
	_, ok := target.(*ErrDiscussionNotFound)
	return ok
}

type ErrForumNotFound struct {
	ForumID int64
}

func (e *ErrForumNotFound) Error() string {
	return fmt.Sprintf("форум не найден: %d", e.ForumID)
}

func (e *ErrForumNotFound) Is(target error) bool {
	_, ok := target.(*ErrForumNotFound)
	return ok
}

type ErrCourseNotFound struct {
	CourseID int64
}

func (e *ErrCourseNotFound) Error() string {
	return fmt.Sprintf("курс не найден: %d", e.CourseID)
}

func (e *ErrCourseNotFound) Is(target error) bool {
	_, ok := target.(*ErrCourseNotFound)
	return ok
}

type ErrCourseModuleNotFound struct {
	ForumID int64
}

func (e *ErrCourseModuleNotFound) Error() string {
	return fmt.Sprintf("модуль курса для форума %d не найден", e.ForumID)
}

func (e *ErrCourseModuleNotFound) Is(target error) bool {
	_, ok := target.(*ErrCourseModuleNotFound)
	return ok
}

type ErrUserNotFound struct {
	UserID int64
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("пользователь не найден: %d", e.UserID)
}

func (e *ErrUserNotFound) Is(target error) bool {
	_, ok := target.(*ErrUserNotFound)
	return ok
}

type ErrInvalidDigestMode struct {
	Mode int
}

func (e *ErrInvalidDigestMode) Error() string {
	return fmt.Sprintf("недопустимый режим дайджеста: %d", e.Mode)
}

func (e *ErrInvalidDigestMode) Is(target error) bool {
	_, ok := target.(*ErrInvalidDigestMode)
	return ok
}

type ErrSubscriptionDisallowed struct {
	ForumID int64
}

func (e *ErrSubscriptionDisallowed) Error() string {
	return fmt.Sprintf("подписка на форум %d запрещена настройками форума", e.ForumID)
}

func (e *ErrSubscriptionDisallowed) Is(target error) bool {
	_, ok := target.(*ErrSubscriptionDisallowed)
	return ok
}

type ErrEmptyReadRecordFilter struct{}

func (e *ErrEmptyReadRecordFilter) Error() string {
	return "удаление отметок о прочтении требует хотя бы одного фильтра"
}

func (e *ErrEmptyReadRecordFilter) Is(target error) bool {
	_, ok := target.(*ErrEmptyReadRecordFilter)
	return ok
}

type ErrReadRecordNotFound struct {
	UserID int64
	PostID int64
}

func (e *ErrReadRecordNotFound) Error() string {
	return fmt.Sprintf("отметка о прочтении не найдена: пользователь %d, пост %d", e.UserID, e.PostID)
}

func (e *ErrReadRecordNotFound) Is(target error) bool {
	_, ok := target.(*ErrReadRecordNotFound)
	return ok
}

type ErrDeliveryFailure struct {
	Recipient string
	Cause     error
}

func (e *ErrDeliveryFailure) Error() string {
	return fmt.Sprintf("ошибка доставки письма получателю %s: %v", e.Recipient, e.Cause)
}

func (e *ErrDeliveryFailure) Unwrap() error {
	return e.Cause
}

type ErrUnknownDBAccessType struct {
	AccessType string
}

func (e *ErrUnknownDBAccessType) Error() string {
	return fmt.Sprintf("неизвестный тип доступа к базе данных: %s", e.AccessType)
}

type ErrUnknownMailTransport struct {
	Transport string
}

func (e *ErrUnknownMailTransport) Error() string {
	return fmt.Sprintf("неизвестный транспорт почтовых уведомлений: %s", e.Transport)
}

type ErrBuildSQLQuery struct {
	Operation string
	Cause     error
}

func (e *ErrBuildSQLQuery) Error() string {
	return fmt.Sprintf("ошибка при построении SQL запроса для %s: %v", e.Operation, e.Cause)
}

func (e *ErrBuildSQLQuery) Unwrap() error {
	return e.Cause
}

type ErrSQLExecution struct {
	Operation string
	Cause     error
}

func (e *ErrSQLExecution) Error() string {
	return fmt.Sprintf("ошибка при выполнении SQL запроса для %s: %v", e.Operation, e.Cause)
}

func (e *ErrSQLExecution) Unwrap() error {
	return e.Cause
}

type ErrSQLScan struct {
	Entity string
	Cause  error
}

func (e *ErrSQLScan) Error() string {
	return fmt.Sprintf("ошибка при сканировании %s: %v", e.Entity, e.Cause)
}

func (e *ErrSQLScan) Unwrap() error {
	return e.Cause
}

type ErrBadRequest struct {
	Message string
}

func (e *ErrBadRequest) Error() string {
	return fmt.Sprintf("bad request: %s", e.Message)
}

func (e *ErrBadRequest) Is(target error) bool {
	_, ok := target.(*ErrBadRequest)
	return ok
}

type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %d", e.StatusCode)
}
