// Package model содержит доменные сущности сервиса FORMA+.
package model

import "time"

// TimeLayout задаёт формат времени в ответах API: ISO-8601 с миллисекундами.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime форматирует время в UTC по TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// User представляет зарегистрированного пользователя.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Post описывает публикацию пользователя.
type Post struct {
	ID        string
	UserID    string
	Title     string
	Content   string
	CreatedAt time.Time
}

// PointEventType описывает тип действия, за которое начисляются баллы.
type PointEventType string

const (
	PointEventPostCreated      PointEventType = "POST_CREATED"
	PointEventProfileCompleted PointEventType = "PROFILE_COMPLETED"
	PointEventDailyCheckin     PointEventType = "DAILY_CHECKIN"
)

// Valid сообщает, входит ли тип в закрытый список.
func (t PointEventType) Valid() bool {
	switch t {
	case PointEventPostCreated, PointEventProfileCompleted, PointEventDailyCheckin:
		return true
	}
	return false
}

// PointEvent описывает запись журнала начисления баллов. Записи только добавляются.
type PointEvent struct {
	ID        string
	UserID    string
	Type      PointEventType
	Points    int64
	Meta      map[string]any
	MetaHash  string
	CreatedAt time.Time
}

// ReservationStatus описывает статус заявки на бронирование.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusPaid      ReservationStatus = "PAID"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// Reservation описывает заявку на бронирование пакета путешествия.
type Reservation struct {
	ID           string
	UserID       string
	Slug         *string
	Destination  *string
	TripStart    *time.Time
	TripEnd      *time.Time
	TripDuration *string
	Budget       *string
	FormData     map[string]string
	Status       ReservationStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Payments отсортированы по PaidAt по убыванию.
	Payments []Payment
}

// PaymentMethod описывает способ оплаты.
type PaymentMethod string

const (
	PaymentMethodPix        PaymentMethod = "PIX"
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentMethodBoleto     PaymentMethod = "BOLETO"
)

// PaymentStatus описывает статус платежа.
type PaymentStatus string

const PaymentStatusConfirmed PaymentStatus = "CONFIRMED"

// DefaultCurrency используется, если валюта не указана.
const DefaultCurrency = "BRL"

// Payment описывает зафиксированный платёж по заявке. После создания не изменяется.
type Payment struct {
	ID            string
	ReservationID string
	Method        PaymentMethod
	// AmountCents хранит сумму в сотых долях валюты.
	AmountCents *int64
	Currency    string
	Status      PaymentStatus
	PaidAt      time.Time
	ReceiptCode string
	Details     map[string]any
	CreatedAt   time.Time
}

// Amount возвращает сумму платежа в единицах валюты.
func (p Payment) Amount() *float64 {
	if p.AmountCents == nil {
		return nil
	}
	v := float64(*p.AmountCents) / 100
	return &v
}

// Receipt описывает квитанцию, собранную из заявки и её платежа.
type Receipt struct {
	ReservationID string         `json:"reservationId"`
	ReceiptCode   string         `json:"receiptCode"`
	Destination   *string        `json:"destination"`
	Method        PaymentMethod  `json:"method"`
	Amount        *float64       `json:"amount"`
	Currency      string         `json:"currency"`
	PaidAt        string         `json:"paidAt"`
	Details       map[string]any `json:"details"`
	Status        PaymentStatus  `json:"status"`
}

// PointsSummary содержит баланс баллов и последние начисления пользователя.
type PointsSummary struct {
	Balance    int64
	Activities []PointEvent
}
