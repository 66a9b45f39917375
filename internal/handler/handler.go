// Package handler содержит HTTP-обработчики API сервиса FORMA+.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/formaplus/internal/middleware"
	"github.com/mmeshcher/formaplus/internal/model"
	"github.com/mmeshcher/formaplus/internal/repository"
	"github.com/mmeshcher/formaplus/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error

	RegisterUser(ctx context.Context, in service.RegisterInput) (*model.User, error)
	AuthenticateUser(ctx context.Context, in service.LoginInput) (*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, in service.UpdateProfileInput) (*model.User, error)
	GetPoints(ctx context.Context, userID string) (*model.PointsSummary, error)
	DailyCheckin(ctx context.Context, userID string) (*model.PointsSummary, error)

	CreatePost(ctx context.Context, userID string, in service.CreatePostInput) (*model.Post, error)
	ListPosts(ctx context.Context, userID string) ([]model.Post, error)
	GetPost(ctx context.Context, userID, id string) (*model.Post, error)
	DeletePost(ctx context.Context, userID, id string) error

	CreateReservation(ctx context.Context, userID string, in service.CreateReservationInput) (*model.Reservation, error)
	ListReservations(ctx context.Context, userID string) ([]model.Reservation, error)
	GetReservation(ctx context.Context, userID, id string) (*model.Reservation, error)
	SubmitPayment(ctx context.Context, userID, reservationID string, body []byte) (*model.Reservation, *model.Receipt, error)
	GetReceipt(ctx context.Context, userID, reservationID string) (*model.Receipt, error)
}

// Options содержит параметры HTTP-слоя.
type Options struct {
	// Env попадает в ответ /health.
	Env string
	// AllowedOrigins перечисляет источники, которым разрешены CORS-запросы с cookie.
	AllowedOrigins []string
	// AuthRateLimit ограничивает число запросов к /auth с одного IP за AuthRateWindow.
	// Нулевое значение означает 100 запросов за 15 минут.
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// Handler реализует HTTP-обработчики API сервиса FORMA+.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	opts           Options
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, opts Options) *Handler {
	if opts.AuthRateLimit <= 0 {
		opts.AuthRateLimit = 100
	}
	if opts.AuthRateWindow <= 0 {
		opts.AuthRateWindow = 15 * time.Minute
	}

	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		opts:           opts,
	}
}

type healthResponse struct {
	OK        bool   `json:"ok"`
	DB        string `json:"db"`
	Timestamp string `json:"timestamp"`
	Env       string `json:"env"`
}

// Health проверяет доступность хранилища.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		OK:        true,
		DB:        "up",
		Timestamp: model.FormatTime(time.Now()),
		Env:       h.opts.Env,
	}

	if err := h.service.Ping(ctx); err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		resp.OK = false
		resp.DB = "down"
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type userEnvelope struct {
	User userResponse `json:"user"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err, "invalid register payload")
		return
	}

	u, err := h.service.RegisterUser(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "invalid register payload")
		return
	}

	if !h.setSession(w, r, u.ID) {
		return
	}
	writeJSON(w, http.StatusCreated, userEnvelope{User: newUserResponse(u)})
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err, "invalid login payload")
		return
	}

	u, err := h.service.AuthenticateUser(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "invalid login payload")
		return
	}

	if !h.setSession(w, r, u.ID) {
		return
	}
	writeJSON(w, http.StatusOK, userEnvelope{User: newUserResponse(u)})
}

func (h *Handler) setSession(w http.ResponseWriter, r *http.Request, userID string) bool {
	if _, err := h.authMiddleware.SetAuthCookie(w, userID); err != nil {
		h.fail(w, r, err, "")
		return false
	}
	return true
}

// Logout удаляет cookie авторизации.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

type meResponse struct {
	User *userResponse `json:"user"`
}

// Me возвращает текущего пользователя или null, если пользователь по токену не найден.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeJSON(w, http.StatusOK, meResponse{})
			return
		}
		h.fail(w, r, err, "")
		return
	}

	resp := newUserResponse(u)
	writeJSON(w, http.StatusOK, meResponse{User: &resp})
}

// GetProfile возвращает профиль текущего пользователя.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, userEnvelope{User: newUserResponse(u)})
}

// UpdateProfile изменяет имя и/или email текущего пользователя.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req service.UpdateProfileInput
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err, "invalid profile payload")
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		h.fail(w, r, err, "invalid profile payload")
		return
	}

	writeJSON(w, http.StatusOK, userEnvelope{User: newUserResponse(u)})
}

// GetPoints возвращает баланс баллов и последние начисления.
func (h *Handler) GetPoints(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := h.service.GetPoints(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, newPointsResponse(summary))
}

// Checkin начисляет баллы за ежедневный визит.
func (h *Handler) Checkin(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := h.service.DailyCheckin(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, newPointsResponse(summary))
}
