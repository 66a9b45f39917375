package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/formaplus/internal/model"
)

func newTestPostgres(t *testing.T) *PostgresRepository {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URI")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URI is not set")
	}

	repo, err := NewPostgresRepository(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedReservation(t *testing.T, repo *PostgresRepository) *model.Reservation {
	t.Helper()
	ctx := context.Background()

	u := &model.User{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@forma.tur.br",
		Name:         "Ana Souza",
		PasswordHash: []byte("hash"),
	}
	require.NoError(t, repo.CreateUser(ctx, u))

	now := time.Now().UTC().Truncate(time.Microsecond)
	res := &model.Reservation{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		FormData:  map[string]string{"destination": "Bonito"},
		Status:    model.ReservationStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.CreateReservation(ctx, res))
	return res
}

func newTestPayment(reservationID string) *model.Payment {
	now := time.Now().UTC().Truncate(time.Microsecond)
	cents := int64(150000)
	return &model.Payment{
		ID:            uuid.NewString(),
		ReservationID: reservationID,
		Method:        model.PaymentMethodPix,
		AmountCents:   &cents,
		Currency:      model.DefaultCurrency,
		Status:        model.PaymentStatusConfirmed,
		PaidAt:        now,
		ReceiptCode:   "RES-" + uuid.NewString(),
		Details:       map[string]any{"pixKey": "ana@forma.tur.br"},
		CreatedAt:     now,
	}
}

func TestPostgresRepository_RecordPaymentReturnsCommittedState(t *testing.T) {
	repo := newTestPostgres(t)
	res := seedReservation(t, repo)
	p := newTestPayment(res.ID)

	got, err := repo.RecordPayment(context.Background(), p, "1500")
	require.NoError(t, err)

	assert.Equal(t, model.ReservationStatusPaid, got.Status)
	require.NotNil(t, got.Budget)
	assert.Equal(t, "1500", *got.Budget)
	require.Len(t, got.Payments, 1)
	assert.Equal(t, p.ID, got.Payments[0].ID)
	assert.Equal(t, p.ReceiptCode, got.Payments[0].ReceiptCode)

	stored, err := repo.GetReservation(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Status, stored.Status)
	assert.Len(t, stored.Payments, 1)
}

func TestPostgresRepository_RecordPaymentConcurrent(t *testing.T) {
	const workers = 8

	repo := newTestPostgres(t)
	res := seedReservation(t, repo)

	var (
		wg   sync.WaitGroup
		errs = make(chan error, workers)
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.RecordPayment(context.Background(), newTestPayment(res.ID), "1500")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var paid, rejected int
	for err := range errs {
		switch {
		case err == nil:
			paid++
		case errors.Is(err, ErrAlreadyPaid):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, paid)
	assert.Equal(t, workers-1, rejected)

	stored, err := repo.GetReservation(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Payments, 1)
}
