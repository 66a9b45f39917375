package handler

import (
	"time"

	"github.com/mmeshcher/formaplus/internal/model"
)

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: model.FormatTime(u.CreatedAt),
	}
}

type postResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

func newPostResponse(p *model.Post) postResponse {
	return postResponse{
		ID:        p.ID,
		UserID:    p.UserID,
		Title:     p.Title,
		Content:   p.Content,
		CreatedAt: model.FormatTime(p.CreatedAt),
	}
}

type pointEventResponse struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Points    int64          `json:"points"`
	Meta      map[string]any `json:"meta"`
	CreatedAt string         `json:"createdAt"`
}

type pointsResponse struct {
	Balance    int64                `json:"balance"`
	Activities []pointEventResponse `json:"activities"`
}

func newPointsResponse(s *model.PointsSummary) pointsResponse {
	resp := pointsResponse{
		Balance:    s.Balance,
		Activities: make([]pointEventResponse, 0, len(s.Activities)),
	}
	for _, e := range s.Activities {
		meta := e.Meta
		if meta == nil {
			meta = map[string]any{}
		}
		resp.Activities = append(resp.Activities, pointEventResponse{
			ID:        e.ID,
			Type:      string(e.Type),
			Points:    e.Points,
			Meta:      meta,
			CreatedAt: model.FormatTime(e.CreatedAt),
		})
	}
	return resp
}

type paymentResponse struct {
	ID            string         `json:"id"`
	ReservationID string         `json:"reservationId"`
	Method        string         `json:"method"`
	Amount        *float64       `json:"amount"`
	Currency      string         `json:"currency"`
	Status        string         `json:"status"`
	PaidAt        string         `json:"paidAt"`
	ReceiptCode   string         `json:"receiptCode"`
	Details       map[string]any `json:"details"`
	CreatedAt     string         `json:"createdAt"`
}

type reservationResponse struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"`
	Slug         *string           `json:"slug"`
	Destination  *string           `json:"destination"`
	TripStart    *string           `json:"tripStart"`
	TripEnd      *string           `json:"tripEnd"`
	TripDuration *string           `json:"tripDuration"`
	Budget       *string           `json:"budget"`
	Status       string            `json:"status"`
	CreatedAt    string            `json:"createdAt"`
	UpdatedAt    string            `json:"updatedAt"`
	Payments     []paymentResponse `json:"payments"`
}

func newReservationResponse(res *model.Reservation) reservationResponse {
	resp := reservationResponse{
		ID:           res.ID,
		UserID:       res.UserID,
		Slug:         res.Slug,
		Destination:  res.Destination,
		TripStart:    formatOptionalTime(res.TripStart),
		TripEnd:      formatOptionalTime(res.TripEnd),
		TripDuration: res.TripDuration,
		Budget:       res.Budget,
		Status:       string(res.Status),
		CreatedAt:    model.FormatTime(res.CreatedAt),
		UpdatedAt:    model.FormatTime(res.UpdatedAt),
		Payments:     make([]paymentResponse, 0, len(res.Payments)),
	}
	for _, p := range res.Payments {
		details := p.Details
		if details == nil {
			details = map[string]any{}
		}
		resp.Payments = append(resp.Payments, paymentResponse{
			ID:            p.ID,
			ReservationID: p.ReservationID,
			Method:        string(p.Method),
			Amount:        p.Amount(),
			Currency:      p.Currency,
			Status:        string(p.Status),
			PaidAt:        model.FormatTime(p.PaidAt),
			ReceiptCode:   p.ReceiptCode,
			Details:       details,
			CreatedAt:     model.FormatTime(p.CreatedAt),
		})
	}
	return resp
}

// reservationDetailResponse дополняет заявку исходными данными формы.
type reservationDetailResponse struct {
	reservationResponse
	FormData map[string]string `json:"formData"`
}

func newReservationDetailResponse(res *model.Reservation) reservationDetailResponse {
	form := res.FormData
	if form == nil {
		form = map[string]string{}
	}
	return reservationDetailResponse{
		reservationResponse: newReservationResponse(res),
		FormData:            form,
	}
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := model.FormatTime(*t)
	return &s
}
