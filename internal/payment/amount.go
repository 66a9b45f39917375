package payment

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ParseBudget извлекает число из текстового бюджета вида "R$ 2.490,00".
// Точки перед тремя цифрами считаются разделителями тысяч, первая запятая считается десятичным разделителем.
func ParseBudget(budget string) (float64, bool) {
	var kept []rune
	for _, r := range budget {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			kept = append(kept, r)
		}
	}

	var b strings.Builder
	for i, r := range kept {
		if r == '.' && followedByDigits(kept[i+1:], 3) {
			continue
		}
		b.WriteRune(r)
	}

	normalized := strings.Replace(b.String(), ",", ".", 1)
	if normalized == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func followedByDigits(rs []rune, n int) bool {
	if len(rs) < n {
		return false
	}
	for _, r := range rs[:n] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ResolveAmount выбирает сумму платежа: переданную в запросе, если она положительна,
// иначе разобранную из бюджета заявки.
func ResolveAmount(requested *float64, budget *string) (float64, bool) {
	if requested != nil && *requested > 0 {
		return *requested, true
	}
	if budget == nil {
		return 0, false
	}
	v, ok := ParseBudget(*budget)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// MaxAmountCents ограничивает сумму платежа в сотых долях.
// Больше 2^53 float64 уже не хранит целые сотые точно.
const MaxAmountCents int64 = 1 << 53

// ToCents переводит сумму в сотые доли с округлением.
// Возвращает false, если после округления получается меньше одной сотой или больше MaxAmountCents.
func ToCents(amount float64) (int64, bool) {
	cents := math.Round(amount * 100)
	if math.IsNaN(cents) || cents < 1 || cents > float64(MaxAmountCents) {
		return 0, false
	}
	return int64(cents), true
}

// FormatAmount возвращает сумму в виде, пригодном для поля бюджета.
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

// NewReceiptCode создаёт код квитанции из времени в миллисекундах и короткого случайного суффикса.
// Коды сортируются по времени создания.
func NewReceiptCode(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("RES-%d-%s", now.UnixMilli(), suffix)
}
