// Package payment разбирает и проверяет платёжные данные заявки.
package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/mmeshcher/formaplus/internal/model"
	"github.com/mmeshcher/formaplus/internal/validation"
)

// Submission описывает одну из трёх форм платежа, различаемых по полю method.
type Submission interface {
	Method() model.PaymentMethod
	// RequestedAmount возвращает сумму из запроса или nil, если она не передана.
	RequestedAmount() *float64
	// Details возвращает данные платежа для сохранения. Номер карты и CVV в них не попадают.
	Details() map[string]any

	submission()
}

// Pix описывает оплату через PIX.
type Pix struct {
	Amount        *float64 `json:"amount" validate:"omitempty,gt=0"`
	PayerName     string   `json:"payerName" validate:"required,min=2"`
	PayerDocument string   `json:"payerDocument" validate:"required,min=5"`
	PixKey        string   `json:"pixKey" validate:"required,min=3"`
	Notes         string   `json:"notes" validate:"omitempty,max=280"`
}

// Card описывает оплату кредитной картой.
type Card struct {
	Amount       *float64 `json:"amount" validate:"omitempty,gt=0"`
	CardHolder   string   `json:"cardHolder" validate:"required,min=2"`
	CardNumber   string   `json:"cardNumber" validate:"required,cardnumber"`
	Expiry       string   `json:"expiry" validate:"required,expiry"`
	CVV          string   `json:"cvv" validate:"required,min=3,max=4,digits"`
	Installments *int     `json:"installments" validate:"omitempty,min=1,max=12"`
}

// Boleto описывает оплату банковским бланком.
type Boleto struct {
	Amount        *float64 `json:"amount" validate:"omitempty,gt=0"`
	PayerName     string   `json:"payerName" validate:"required,min=2"`
	PayerDocument string   `json:"payerDocument" validate:"required,min=5"`
	BoletoNumber  string   `json:"boletoNumber" validate:"required,min=5"`
	Bank          string   `json:"bank" validate:"omitempty,min=2,max=60"`
}

func (Pix) Method() model.PaymentMethod    { return model.PaymentMethodPix }
func (Card) Method() model.PaymentMethod   { return model.PaymentMethodCreditCard }
func (Boleto) Method() model.PaymentMethod { return model.PaymentMethodBoleto }

func (p Pix) RequestedAmount() *float64    { return p.Amount }
func (c Card) RequestedAmount() *float64   { return c.Amount }
func (b Boleto) RequestedAmount() *float64 { return b.Amount }

func (Pix) submission()    {}
func (Card) submission()   {}
func (Boleto) submission() {}

// Details возвращает данные PIX-платежа.
func (p Pix) Details() map[string]any {
	d := map[string]any{
		"payerName":     p.PayerName,
		"payerDocument": p.PayerDocument,
		"pixKey":        p.PixKey,
	}
	if p.Notes != "" {
		d["notes"] = p.Notes
	}
	return d
}

// Details возвращает маскированные данные карты.
func (c Card) Details() map[string]any {
	masked, last4 := MaskCardNumber(c.CardNumber)
	return map[string]any{
		"cardHolder":   c.CardHolder,
		"cardLast4":    last4,
		"cardMasked":   masked,
		"expiry":       c.Expiry,
		"installments": c.installments(),
	}
}

// Details возвращает данные бланка.
func (b Boleto) Details() map[string]any {
	d := map[string]any{
		"payerName":     b.PayerName,
		"payerDocument": b.PayerDocument,
		"boletoNumber":  b.BoletoNumber,
	}
	if b.Bank != "" {
		d["bank"] = b.Bank
	}
	return d
}

func (c Card) installments() int {
	if c.Installments == nil {
		return 1
	}
	return *c.Installments
}

// String не раскрывает номер карты и CVV при случайном выводе в лог.
func (c Card) String() string {
	_, last4 := MaskCardNumber(c.CardNumber)
	return fmt.Sprintf("Card{holder:%q last4:%s}", c.CardHolder, last4)
}

// MaskCardNumber возвращает маску номера карты и последние четыре цифры.
func MaskCardNumber(number string) (string, string) {
	digits := validation.Digits(number)
	last4 := digits
	if len(digits) > 4 {
		last4 = digits[len(digits)-4:]
	}
	return "**** **** **** " + last4, last4
}

// Parse разбирает тело запроса в одну из форм платежа и проверяет её.
// Ошибки разбора и проверки возвращаются как *validation.Error.
func Parse(v *validator.Validate, body []byte) (Submission, error) {
	var envelope struct {
		Method *string `json:"method"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, decodeError(err)
	}
	if envelope.Method == nil {
		return nil, validation.FieldError("method", "is required")
	}

	var s Submission
	switch model.PaymentMethod(*envelope.Method) {
	case model.PaymentMethodPix:
		var p Pix
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, decodeError(err)
		}
		s = p
	case model.PaymentMethodCreditCard:
		var c Card
		if err := json.Unmarshal(body, &c); err != nil {
			return nil, decodeError(err)
		}
		s = c
	case model.PaymentMethodBoleto:
		var b Boleto
		if err := json.Unmarshal(body, &b); err != nil {
			return nil, decodeError(err)
		}
		s = b
	default:
		return nil, validation.FieldError("method", "must be one of: PIX CREDIT_CARD BOLETO")
	}

	if err := v.Struct(s); err != nil {
		return nil, validation.Convert(err)
	}

	return s, nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return validation.FieldError(typeErr.Field, "has invalid type")
	}
	return validation.FieldError("body", "must be a valid JSON object")
}
