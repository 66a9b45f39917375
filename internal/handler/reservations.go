package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/formaplus/internal/middleware"
	"github.com/mmeshcher/formaplus/internal/model"
	"github.com/mmeshcher/formaplus/internal/service"
)

type reservationEnvelope struct {
	Reservation reservationDetailResponse `json:"reservation"`
}

type reservationsEnvelope struct {
	Reservations []reservationResponse `json:"reservations"`
}

type paymentResultResponse struct {
	Reservation reservationDetailResponse `json:"reservation"`
	Receipt     *model.Receipt            `json:"receipt"`
}

type receiptEnvelope struct {
	Receipt *model.Receipt `json:"receipt"`
}

// CreateReservation создаёт заявку текущего пользователя.
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req service.CreateReservationInput
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err, "invalid reservation payload")
		return
	}

	res, err := h.service.CreateReservation(r.Context(), userID, req)
	if err != nil {
		h.fail(w, r, err, "invalid reservation payload")
		return
	}

	writeJSON(w, http.StatusCreated, reservationEnvelope{Reservation: newReservationDetailResponse(res)})
}

// ListReservations возвращает заявки текущего пользователя, новые первыми.
func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	list, err := h.service.ListReservations(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	resp := reservationsEnvelope{Reservations: make([]reservationResponse, 0, len(list))}
	for i := range list {
		resp.Reservations = append(resp.Reservations, newReservationResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetReservation возвращает заявку текущего пользователя.
func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	res, err := h.service.GetReservation(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, reservationEnvelope{Reservation: newReservationDetailResponse(res)})
}

// SubmitPayment фиксирует платёж по заявке и возвращает заявку с квитанцией.
func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err, "invalid payment payload")
		return
	}

	reservationID := chi.URLParam(r, "id")
	res, receipt, err := h.service.SubmitPayment(r.Context(), userID, reservationID, body)
	if err != nil {
		h.fail(w, r, err, "invalid payment payload")
		return
	}

	h.logger.Info("payment recorded",
		zap.String("reservationID", reservationID),
		zap.String("method", string(receipt.Method)),
		zap.String("receiptCode", receipt.ReceiptCode),
	)

	writeJSON(w, http.StatusCreated, paymentResultResponse{
		Reservation: newReservationDetailResponse(res),
		Receipt:     receipt,
	})
}

// GetReceipt возвращает квитанцию по последнему платежу заявки.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	receipt, err := h.service.GetReceipt(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, service.ErrReservationNotFound) {
			writeError(w, http.StatusNotFound, "receipt not found")
			return
		}
		h.fail(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, receiptEnvelope{Receipt: receipt})
}
