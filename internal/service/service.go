// Package service реализует бизнес-логику сервиса FORMA+.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/formaplus/internal/model"
	"github.com/mmeshcher/formaplus/internal/repository"
	"github.com/mmeshcher/formaplus/internal/validation"
)

// Начисляемые баллы по типам событий.
const (
	PostCreatedPoints      int64 = 10
	ProfileCompletedPoints int64 = 50
	DailyCheckinPoints     int64 = 5
)

var (
	// ErrInvalidCredentials возвращается при неверной паре email/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken возвращается, если email уже принадлежит другому пользователю.
	ErrEmailTaken = errors.New("email already in use")
	// ErrNothingToUpdate возвращается, если в запросе на изменение профиля нет полей.
	ErrNothingToUpdate = errors.New("nothing to update")
)

// UserRepository описывает хранилище пользователей.
type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUser(ctx context.Context, id string, name, email *string) (*model.User, error)
}

// PostRepository описывает хранилище публикаций.
type PostRepository interface {
	CreatePost(ctx context.Context, p *model.Post) error
	GetPostsByUser(ctx context.Context, userID string) ([]model.Post, error)
	GetPost(ctx context.Context, id string) (*model.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// ReservationRepository описывает хранилище заявок.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, res *model.Reservation) error
	GetReservation(ctx context.Context, id string) (*model.Reservation, error)
	GetReservationsByUser(ctx context.Context, userID string) ([]model.Reservation, error)
}

// PaymentRepository описывает хранилище платежей.
type PaymentRepository interface {
	RecordPayment(ctx context.Context, p *model.Payment, budget string) (*model.Reservation, error)
}

// Repository объединяет хранилища, используемые сервисом.
type Repository interface {
	UserRepository
	PostRepository
	ReservationRepository
	PaymentRepository
	Close() error
	Ping(ctx context.Context) error
}

// Ledger описывает журнал баллов.
type Ledger interface {
	Award(ctx context.Context, userID string, typ model.PointEventType, points int64, meta map[string]any) (*model.PointsSummary, error)
	AwardAsync(userID string, typ model.PointEventType, points int64, meta map[string]any)
	Summary(ctx context.Context, userID string) (*model.PointsSummary, error)
	Wait()
}

// Service содержит бизнес-логику сервиса FORMA+.
type Service struct {
	repo      Repository
	ledger    Ledger
	validate  *validator.Validate
	sanitizer *bluemonday.Policy

	now        func() time.Time
	bcryptCost int
}

// NewService создаёт новый сервис с указанным хранилищем и журналом баллов.
func NewService(repo Repository, ledger Ledger) *Service {
	return &Service{
		repo:       repo,
		ledger:     ledger,
		validate:   validation.New(),
		sanitizer:  newPostPolicy(),
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Close дожидается фоновых начислений и закрывает хранилище.
func (s *Service) Close() error {
	if s.ledger != nil {
		s.ledger.Wait()
	}
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) timestamp() time.Time {
	// PostgreSQL хранит время с точностью до микросекунд.
	return s.now().UTC().Truncate(time.Microsecond)
}

// RegisterInput содержит данные регистрации.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
}

// LoginInput содержит данные входа.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileInput содержит изменяемые поля профиля. Пустые значения не меняют поле.
type UpdateProfileInput struct {
	Name  string `json:"name" validate:"omitempty,min=2,max=100"`
	Email string `json:"email" validate:"omitempty,email"`
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, validation.Convert(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		CreatedAt:    s.timestamp(),
	}

	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, repository.ErrUserExists
		}
		return nil, err
	}
	return u, nil
}

// AuthenticateUser проверяет email и пароль пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, in LoginInput) (*model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, validation.Convert(err)
	}

	u, err := s.repo.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// GetUser возвращает пользователя по идентификатору.
func (s *Service) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// UpdateProfile изменяет имя и/или email пользователя.
// Первое заполнение профиля приносит баллы PROFILE_COMPLETED.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, validation.Convert(err)
	}

	var name, email *string
	if in.Name != "" {
		name = &in.Name
	}
	if in.Email != "" {
		email = &in.Email
	}
	if name == nil && email == nil {
		return nil, ErrNothingToUpdate
	}

	u, err := s.repo.UpdateUser(ctx, userID, name, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	if u.Name != "" && u.Email != "" {
		s.ledger.AwardAsync(u.ID, model.PointEventProfileCompleted, ProfileCompletedPoints, nil)
	}

	return u, nil
}

// GetPoints возвращает баланс баллов и последние начисления пользователя.
func (s *Service) GetPoints(ctx context.Context, userID string) (*model.PointsSummary, error) {
	return s.ledger.Summary(ctx, userID)
}

// DailyCheckin начисляет баллы за ежедневный визит. Повторный визит в тот же день баллов не даёт.
func (s *Service) DailyCheckin(ctx context.Context, userID string) (*model.PointsSummary, error) {
	meta := map[string]any{"date": s.timestamp().Format("2006-01-02")}
	return s.ledger.Award(ctx, userID, model.PointEventDailyCheckin, DailyCheckinPoints, meta)
}
