package service

import "github.com/mmeshcher/formaplus/internal/model"

// BuildReceipt собирает квитанцию из заявки и платежа. Хранилище не используется.
func BuildReceipt(res *model.Reservation, p model.Payment) model.Receipt {
	details := p.Details
	if details == nil {
		details = map[string]any{}
	}

	return model.Receipt{
		ReservationID: res.ID,
		ReceiptCode:   p.ReceiptCode,
		Destination:   res.Destination,
		Method:        p.Method,
		Amount:        p.Amount(),
		Currency:      p.Currency,
		PaidAt:        model.FormatTime(p.PaidAt),
		Details:       details,
		Status:        p.Status,
	}
}

// LatestPayment возвращает платёж с наибольшим PaidAt. При равенстве выигрывает созданный позже.
func LatestPayment(payments []model.Payment) (model.Payment, bool) {
	if len(payments) == 0 {
		return model.Payment{}, false
	}
	latest := payments[0]
	for _, p := range payments[1:] {
		if p.PaidAt.After(latest.PaidAt) ||
			(p.PaidAt.Equal(latest.PaidAt) && p.CreatedAt.After(latest.CreatedAt)) {
			latest = p
		}
	}
	return latest, true
}
