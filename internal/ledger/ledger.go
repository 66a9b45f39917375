// Package ledger ведёт журнал начисления баллов пользователям.
package ledger

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/formaplus/internal/model"
	"github.com/mmeshcher/formaplus/internal/repository"
)

// RecentLimit ограничивает число последних начислений в ответе.
const RecentLimit = 50

const asyncAwardTimeout = 5 * time.Second

// ErrInvalidAward возвращается при некорректных параметрах начисления.
var ErrInvalidAward = errors.New("invalid award")

// Repository описывает хранилище журнала баллов.
type Repository interface {
	CreatePointEvent(ctx context.Context, e *model.PointEvent) error
	GetPointsBalance(ctx context.Context, userID string) (int64, error)
	GetRecentPointEvents(ctx context.Context, userID string, limit int) ([]model.PointEvent, error)
}

// Ledger начисляет баллы не более одного раза на одно логическое событие.
type Ledger struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time

	wg sync.WaitGroup
}

// New создаёт журнал баллов поверх указанного хранилища.
func New(repo Repository, logger *zap.Logger) *Ledger {
	return &Ledger{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Award записывает начисление и возвращает баланс с последними событиями.
// Повторное начисление с теми же пользователем, типом и метаданными пропускается без ошибки.
func (l *Ledger) Award(ctx context.Context, userID string, typ model.PointEventType, points int64, meta map[string]any) (*model.PointsSummary, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidAward)
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidAward, typ)
	}
	if points < 0 {
		return nil, fmt.Errorf("%w: points must be >= 0", ErrInvalidAward)
	}

	hash, err := MetaHash(meta)
	if err != nil {
		return nil, fmt.Errorf("hash meta: %w", err)
	}

	event := &model.PointEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Points:    points,
		Meta:      NormalizeMeta(meta),
		MetaHash:  hash,
		CreatedAt: l.now().UTC(),
	}

	if err := l.repo.CreatePointEvent(ctx, event); err != nil {
		if !errors.Is(err, repository.ErrDuplicatePointEvent) {
			return nil, fmt.Errorf("create point event: %w", err)
		}
		l.logger.Info("duplicate point event skipped",
			zap.String("userID", userID),
			zap.String("type", string(typ)),
			zap.String("metaHash", hash),
		)
	}

	return l.Summary(ctx, userID)
}

// AwardAsync запускает начисление в фоне. Ошибка только логируется и не влияет на вызывающего.
func (l *Ledger) AwardAsync(userID string, typ model.PointEventType, points int64, meta map[string]any) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), asyncAwardTimeout)
		defer cancel()

		if _, err := l.Award(ctx, userID, typ, points, meta); err != nil {
			l.logger.Error("award points error",
				zap.Error(err),
				zap.String("userID", userID),
				zap.String("type", string(typ)),
			)
		}
	}()
}

// Wait дожидается завершения фоновых начислений.
func (l *Ledger) Wait() {
	l.wg.Wait()
}

// Summary возвращает баланс пользователя и его последние начисления, новые первыми.
func (l *Ledger) Summary(ctx context.Context, userID string) (*model.PointsSummary, error) {
	balance, err := l.repo.GetPointsBalance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	events, err := l.repo.GetRecentPointEvents(ctx, userID, RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("get recent events: %w", err)
	}

	for i := range events {
		if events[i].Meta == nil {
			events[i].Meta = map[string]any{}
		}
	}

	return &model.PointsSummary{
		Balance:    balance,
		Activities: events,
	}, nil
}

// NormalizeMeta удаляет ключи с пустыми (nil) значениями.
func NormalizeMeta(meta map[string]any) map[string]any {
	res := make(map[string]any, len(meta))
	for k, v := range meta {
		if v != nil {
			res[k] = v
		}
	}
	return res
}

// MetaHash возвращает sha256 от JSON-массива пар [ключ, значение], отсортированных по ключу.
// HTML-символы и U+2028/U+2029 не экранируются. Некорректный UTF-8 в строках заменяется на U+FFFD.
func MetaHash(meta map[string]any) (string, error) {
	normalized := NormalizeMeta(meta)

	keys := make([]string, 0, len(normalized))
	for k := range normalized {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([][2]any, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, [2]any{k, normalized[k]})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(pairs); err != nil {
		return "", err
	}

	sum := sha256.Sum256(unescapeLineSeparators(bytes.TrimRight(buf.Bytes(), "\n")))
	return hex.EncodeToString(sum[:]), nil
}

// unescapeLineSeparators возвращает U+2028 и U+2029 в исходный вид после encoding/json.
// Экранированная обратная косая черта пропускается парой, поэтому \\u2028 остаётся текстом.
func unescapeLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}

	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		if i+5 < len(b) && b[i+1] == 'u' {
			switch string(b[i+2 : i+6]) {
			case "2028":
				out = append(out, "\u2028"...)
				i += 5
				continue
			case "2029":
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}
