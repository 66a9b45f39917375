package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/formaplus/internal/model"
	"github.com/mmeshcher/formaplus/internal/repository"
	"github.com/mmeshcher/formaplus/internal/validation"
)

// ErrReservationNotFound возвращается, если заявка не существует или принадлежит другому пользователю.
var ErrReservationNotFound = errors.New("reservation not found")

// Форматы дат, принимаемые в полях tripStart и tripEnd.
var tripDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"02/01/2006",
}

// CreateReservationInput содержит данные новой заявки.
type CreateReservationInput struct {
	Slug *string           `json:"slug" validate:"omitempty,min=1,max=191"`
	Form map[string]string `json:"form" validate:"required"`
}

// CreateReservation сохраняет заявку в статусе PENDING.
// Производные поля берутся из формы, сама форма сохраняется без изменений.
func (s *Service) CreateReservation(ctx context.Context, userID string, in CreateReservationInput) (*model.Reservation, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validation.Convert(err)
	}

	now := s.timestamp()
	form := in.Form

	res := &model.Reservation{
		ID:           uuid.NewString(),
		UserID:       userID,
		Slug:         in.Slug,
		Destination:  firstNonEmpty(form, "destinationPrimary", "destination"),
		TripStart:    parseTripDate(form["tripStart"]),
		TripEnd:      parseTripDate(form["tripEnd"]),
		TripDuration: firstNonEmpty(form, "tripDuration"),
		Budget:       firstNonEmpty(form, "budgetPerStudent", "budget"),
		FormData:     form,
		Status:       model.ReservationStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		Payments:     []model.Payment{},
	}

	if err := s.repo.CreateReservation(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// ListReservations возвращает заявки пользователя, новые первыми.
func (s *Service) ListReservations(ctx context.Context, userID string) ([]model.Reservation, error) {
	return s.repo.GetReservationsByUser(ctx, userID)
}

// GetReservation возвращает заявку пользователя вместе с платежами.
func (s *Service) GetReservation(ctx context.Context, userID, id string) (*model.Reservation, error) {
	return s.ownedReservation(ctx, userID, id)
}

// ownedReservation не различает отсутствующую и чужую заявку.
func (s *Service) ownedReservation(ctx context.Context, userID, id string) (*model.Reservation, error) {
	res, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	if res.UserID != userID {
		return nil, ErrReservationNotFound
	}
	return res, nil
}

func firstNonEmpty(form map[string]string, keys ...string) *string {
	for _, k := range keys {
		if v := form[k]; v != "" {
			return &v
		}
	}
	return nil
}

func parseTripDate(v string) *time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	for _, layout := range tripDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
