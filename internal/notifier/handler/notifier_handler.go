package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	customerrors "github.com/central-university-dev/go-forum-notify/internal/domain/errors"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/clients"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/repository"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/service"
)

// NotifierHandler — REST поверхность для интерфейса хост-системы:
// подписки, режимы дайджеста, отслеживание и счётчики непрочитанного.
type NotifierHandler struct {
	subscriptions *service.SubscriptionService
	tracking      *service.TrackingService
	reads         *service.ReadService
	unread        *service.UnreadService
	postRepo      repository.PostRepository
	core          clients.CoreClient
	logger        *slog.Logger
}

func NewNotifierHandler(
	subscriptions *service.SubscriptionService,
	tracking *service.TrackingService,
	reads *service.ReadService,
	unread *service.UnreadService,
	postRepo repository.PostRepository,
	core clients.CoreClient,
	logger *slog.Logger,
) *NotifierHandler {
	return &NotifierHandler{
		subscriptions: subscriptions,
		tracking:      tracking,
		reads:         reads,
		unread:        unread,
		postRepo:      postRepo,
		core:          core,
		logger:        logger,
	}
}

func (h *NotifierHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/forums/{forumID}/subscribers/{userID}", func(r chi.Router) {
			r.Post("/", h.subscribe)
			r.Delete("/", h.unsubscribe)
			r.Get("/", h.isSubscribed)
			r.Put("/digest", h.setDigestPreference)
			r.Get("/digest", h.getDigestPreference)
		})

		r.Route("/forums/{forumID}/trackers/{userID}", func(r chi.Router) {
			r.Post("/", h.startTracking)
			r.Delete("/", h.stopTracking)
			r.Get("/", h.isTracked)
		})

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Post("/read/posts/{postID}", h.markPostRead)
			r.Post("/read/discussions/{discussionID}", h.markDiscussionRead)
			r.Post("/read/forums/{forumID}", h.markForumRead)

			r.Get("/unread/discussions/{discussionID}", h.unreadInDiscussion)
			r.Get("/unread/forums/{forumID}", h.unreadInForum)
			r.Get("/unread/courses/{courseID}", h.unreadForCourse)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}

type digestRequest struct {
	Mode int `json:"mode"`
}

type digestResponse struct {
	Mode int `json:"mode"`
}

type countResponse struct {
	Count int `json:"count"`
}

type flagResponse struct {
	Value bool `json:"value"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *NotifierHandler) subscribe(w http.ResponseWriter, r *http.Request) {
	user, forum, ok := h.userAndForum(w, r)
	if !ok {
		return
	}

	if err := h.subscriptions.Subscribe(r.Context(), user, forum); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotifierHandler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	user, forum, ok := h.userAndForum(w, r)
	if !ok {
		return
	}

	if err := h.subscriptions.Unsubscribe(r.Context(), user, forum); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotifierHandler) isSubscribed(w http.ResponseWriter, r *http.Request) {
	user, forum, ok := h.userAndForum(w, r)
	if !ok {
		return
	}

	subscribed, err := h.subscriptions.IsSubscribed(r.Context(), user, forum)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, flagResponse{Value: subscribed})
}

func (h *NotifierHandler) setDigestPreference(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}

	forumID, ok := h.pathID(w, r, "forumID")
	if !ok {
		return
	}

	var req digestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &customerrors.ErrBadRequest{Message: "некорректное тело запроса"})
		return
	}

	err := h.subscriptions.SetDigestPreference(r.Context(), userID, forumID, models.DigestMode(req.Mode))
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotifierHandler) getDigestPreference(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}

	forumID, ok := h.pathID(w, r, "forumID")
	if !ok {
		return
	}

	mode, err := h.subscriptions.GetDigestPreference(r.Context(), userID, forumID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, digestResponse{Mode: int(mode)})
}

func (h *NotifierHandler) startTracking(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}

	forumID, ok := h.pathID(w, r, "forumID")
	if !ok {
		return
	}

	if err := h.tracking.StartTracking(r.Context(), userID, forumID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotifierHandler) stopTracking(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}

	forumID, ok := h.pathID(w, r, "forumID")
	if !ok {
		return
	}

	if err := h.tracking.StopTracking(r.Context(), userID, forumID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotifierHandler) isTracked(w http.ResponseWriter, r *http.Request) {
	user, forum, ok := h.userAndForum(w, r)
	if !ok {
		return
	}

	tracked, err := h.tracking.IsTracked(r.Context(), forum, user)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, flagResponse{Value: tracked})
}

func (h *NotifierHandler) markPostRead(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	postID, ok := h.pathID(w, r, "postID")
	if !ok {
		return
	}

	if err := h.reads.MarkRead(r.Context(), user, postID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotifierHandler) markDiscussionRead(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	discussionID, ok := h.pathID(w, r, "discussionID")
	if !ok {
		return
	}

	if err := h.reads.MarkDiscussionRead(r.Context(), user, discussionID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotifierHandler) markForumRead(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	forumID, ok := h.pathID(w, r, "forumID")
	if !ok {
		return
	}

	var groupID *int64

	if raw := r.URL.Query().Get("groupID"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, &customerrors.ErrBadRequest{Message: "некорректный идентификатор группы"})
			return
		}

		groupID = &parsed
	}

	if err := h.reads.MarkForumRead(r.Context(), user, forumID, groupID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotifierHandler) unreadInDiscussion(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	discussionID, ok := h.pathID(w, r, "discussionID")
	if !ok {
		return
	}

	count, err := h.unread.CountUnreadInDiscussion(r.Context(), user, discussionID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, countResponse{Count: count})
}

func (h *NotifierHandler) unreadInForum(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	forumID, ok := h.pathID(w, r, "forumID")
	if !ok {
		return
	}

	forum, err := h.postRepo.FindForumByID(r.Context(), forumID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	count, err := h.unread.CountUnreadInForum(r.Context(), user, forum)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, countResponse{Count: count})
}

func (h *NotifierHandler) unreadForCourse(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	courseID, ok := h.pathID(w, r, "courseID")
	if !ok {
		return
	}

	counts, err := h.unread.UnreadMapForCourse(r.Context(), user, courseID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, counts)
}

func (h *NotifierHandler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, &customerrors.ErrBadRequest{Message: "некорректный идентификатор: " + name})
		return 0, false
	}

	return id, true
}

func (h *NotifierHandler) user(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return nil, false
	}

	user, err := h.core.GetUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}

	return user, true
}

func (h *NotifierHandler) userAndForum(w http.ResponseWriter, r *http.Request) (*models.User, *models.Forum, bool) {
	user, ok := h.user(w, r)
	if !ok {
		return nil, nil, false
	}

	forumID, ok := h.pathID(w, r, "forumID")
	if !ok {
		return nil, nil, false
	}

	forum, err := h.postRepo.FindForumByID(r.Context(), forumID)
	if err != nil {
		h.writeError(w, err)
		return nil, nil, false
	}

	return user, forum, true
}

func (h *NotifierHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Ошибка при сериализации ответа",
			"error", err,
		)
	}
}

func (h *NotifierHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, &customerrors.ErrBadRequest{}) ||
		errors.Is(err, &customerrors.ErrInvalidDigestMode{}) ||
		errors.Is(err, &customerrors.ErrEmptyReadRecordFilter{}):
		status = http.StatusBadRequest
	case errors.Is(err, &customerrors.ErrPostNotFound{}) ||
		errors.Is(err, &customerrors.ErrDiscussionNotFound{}) ||
		errors.Is(err, &customerrors.ErrForumNotFound{}) ||
		errors.Is(err, &customerrors.ErrCourseNotFound{}) ||
		errors.Is(err, &customerrors.ErrUserNotFound{}) ||
		errors.Is(err, &customerrors.ErrReadRecordNotFound{}):
		status = http.StatusNotFound
	case errors.Is(err, &customerrors.ErrSubscriptionDisallowed{}):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Внутренняя ошибка обработчика",
			"error", err,
		)
	}

	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}
