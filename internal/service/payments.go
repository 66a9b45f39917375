package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmeshcher/formaplus/internal/model"
	"github.com/mmeshcher/formaplus/internal/payment"
	"github.com/mmeshcher/formaplus/internal/repository"
)

var (
	// ErrInvalidAmount возвращается, если сумму платежа не удалось определить или она вне допустимого диапазона.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNoPayment возвращается, если по заявке нет ни одного платежа.
	ErrNoPayment = errors.New("no payment recorded")
)

// SubmitPayment фиксирует платёж по заявке пользователя и возвращает обновлённую заявку и квитанцию.
// Проверки выполняются по порядку: заявка существует и принадлежит пользователю,
// заявка ещё не оплачена, тело запроса корректно, сумма определена.
func (s *Service) SubmitPayment(ctx context.Context, userID, reservationID string, body []byte) (*model.Reservation, *model.Receipt, error) {
	res, err := s.ownedReservation(ctx, userID, reservationID)
	if err != nil {
		return nil, nil, err
	}
	if res.Status == model.ReservationStatusPaid {
		return nil, nil, repository.ErrAlreadyPaid
	}

	sub, err := payment.Parse(s.validate, body)
	if err != nil {
		return nil, nil, err
	}

	amount, ok := payment.ResolveAmount(sub.RequestedAmount(), res.Budget)
	if !ok {
		return nil, nil, ErrInvalidAmount
	}
	cents, ok := payment.ToCents(amount)
	if !ok {
		return nil, nil, ErrInvalidAmount
	}

	now := s.timestamp()
	p := &model.Payment{
		ID:            uuid.NewString(),
		ReservationID: res.ID,
		Method:        sub.Method(),
		AmountCents:   &cents,
		Currency:      model.DefaultCurrency,
		Status:        model.PaymentStatusConfirmed,
		PaidAt:        now,
		ReceiptCode:   payment.NewReceiptCode(now),
		Details:       sub.Details(),
		CreatedAt:     now,
	}

	updated, err := s.repo.RecordPayment(ctx, p, payment.FormatAmount(amount))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, nil, ErrReservationNotFound
		case errors.Is(err, repository.ErrAlreadyPaid):
			return nil, nil, repository.ErrAlreadyPaid
		}
		return nil, nil, fmt.Errorf("record payment: %w", err)
	}

	stored := *p
	for _, rp := range updated.Payments {
		if rp.ID == p.ID {
			stored = rp
			break
		}
	}

	receipt := BuildReceipt(updated, stored)
	return updated, &receipt, nil
}

// GetReceipt возвращает квитанцию по последнему платежу заявки пользователя.
func (s *Service) GetReceipt(ctx context.Context, userID, reservationID string) (*model.Receipt, error) {
	res, err := s.ownedReservation(ctx, userID, reservationID)
	if err != nil {
		return nil, err
	}

	latest, ok := LatestPayment(res.Payments)
	if !ok {
		return nil, ErrNoPayment
	}

	receipt := BuildReceipt(res, latest)
	return &receipt, nil
}
