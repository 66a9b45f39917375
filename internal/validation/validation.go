// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	digitsPattern = regexp.MustCompile(`^\d+$`)
)

// Error описывает ошибку валидации с сообщениями по каждому полю.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldError создаёт ошибку валидации для одного поля.
func FieldError(field, msg string) *Error {
	return &Error{Fields: map[string]string{field: msg}}
}

// New создаёт валидатор с зарегистрированными правилами сервиса.
// Имена полей в ошибках берутся из json-тегов.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("expiry", func(fl validator.FieldLevel) bool {
		return expiryPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		return digitsPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("cardnumber", func(fl validator.FieldLevel) bool {
		return IsValidCardNumber(fl.Field().String())
	})

	return v
}

// IsValidCardNumber проверяет, что номер карты после удаления пробелов и дефисов
// состоит из 12–19 цифр.
func IsValidCardNumber(number string) bool {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(number)
	if len(cleaned) < 12 || len(cleaned) > 19 {
		return false
	}
	return digitsPattern.MatchString(cleaned)
}

// Digits возвращает только цифры из строки.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Convert превращает ошибки validator в *Error. Прочие ошибки возвращаются без изменений.
func Convert(err error) error {
	if err == nil {
		return nil
	}

	var validationErr validator.ValidationErrors
	if !errors.As(err, &validationErr) {
		return err
	}

	res := &Error{Fields: make(map[string]string, len(validationErr))}
	for _, e := range validationErr {
		if _, ok := res.Fields[e.Field()]; ok {
			continue
		}
		res.Fields[e.Field()] = message(e)
	}
	return res
}

func message(e validator.FieldError) string {
	isString := e.Kind() == reflect.String

	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "gt":
		return "must be a positive number"
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters long", e.Param())
		}
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		if isString {
			return fmt.Sprintf("must be at most %s characters long", e.Param())
		}
		return fmt.Sprintf("must be at most %s", e.Param())
	case "expiry":
		return "must match format MM/YY"
	case "digits":
		return "must contain only digits"
	case "cardnumber":
		return "must contain 12 to 19 digits"
	case "oneof":
		return "must be one of: " + e.Param()
	}
	return "is invalid"
}
