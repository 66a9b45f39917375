package repository

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/mmeshcher/formaplus/internal/model"
)

type pointEventKey struct {
	userID   string
	typ      model.PointEventType
	metaHash string
}

// MemoryRepository хранит все данные в памяти процесса.
// Ограничения уникальности и блокировка оплаты повторяют поведение PostgresRepository.
type MemoryRepository struct {
	mu sync.RWMutex

	users        map[string]model.User
	usersByEmail map[string]string
	posts        map[string]model.Post
	reservations map[string]model.Reservation
	payments     map[string][]model.Payment
	receiptCodes map[string]struct{}
	pointEvents  []model.PointEvent
	pointKeys    map[pointEventKey]struct{}
}

// NewMemoryRepository создаёт пустое in-memory хранилище.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:        make(map[string]model.User),
		usersByEmail: make(map[string]string),
		posts:        make(map[string]model.Post),
		reservations: make(map[string]model.Reservation),
		payments:     make(map[string][]model.Payment),
		receiptCodes: make(map[string]struct{}),
		pointKeys:    make(map[pointEventKey]struct{}),
	}
}

// Close ничего не делает.
func (m *MemoryRepository) Close() error { return nil }

// Ping всегда успешен.
func (m *MemoryRepository) Ping(context.Context) error { return nil }

// CreateUser создаёт нового пользователя.
func (m *MemoryRepository) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.usersByEmail[u.Email]; ok {
		return ErrUserExists
	}
	m.users[u.ID] = *u
	m.usersByEmail[u.Email] = u.ID
	return nil
}

// GetUserByEmail возвращает пользователя по email.
func (m *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.usersByEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := m.users[id]
	return &u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (m *MemoryRepository) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

// UpdateUser обновляет имя и/или email пользователя.
func (m *MemoryRepository) UpdateUser(_ context.Context, id string, name, email *string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}

	if email != nil && *email != u.Email {
		if _, taken := m.usersByEmail[*email]; taken {
			return nil, ErrUserExists
		}
		delete(m.usersByEmail, u.Email)
		u.Email = *email
		m.usersByEmail[u.Email] = u.ID
	}
	if name != nil {
		u.Name = *name
	}

	m.users[id] = u
	return &u, nil
}

// CreatePost сохраняет публикацию.
func (m *MemoryRepository) CreatePost(_ context.Context, p *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.posts[p.ID] = *p
	return nil
}

// GetPostsByUser возвращает публикации пользователя, новые первыми.
func (m *MemoryRepository) GetPostsByUser(_ context.Context, userID string) ([]model.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.Post
	for _, p := range m.posts {
		if p.UserID == userID {
			res = append(res, p)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

// GetPost возвращает публикацию по идентификатору.
func (m *MemoryRepository) GetPost(_ context.Context, id string) (*model.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// DeletePost удаляет публикацию.
func (m *MemoryRepository) DeletePost(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[id]; !ok {
		return ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

// CreatePointEvent добавляет запись в журнал баллов.
func (m *MemoryRepository) CreatePointEvent(_ context.Context, e *model.PointEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pointEventKey{userID: e.UserID, typ: e.Type, metaHash: e.MetaHash}
	if _, ok := m.pointKeys[key]; ok {
		return ErrDuplicatePointEvent
	}
	m.pointKeys[key] = struct{}{}
	m.pointEvents = append(m.pointEvents, *e)
	return nil
}

// GetPointsBalance возвращает сумму всех начислений пользователя.
func (m *MemoryRepository) GetPointsBalance(_ context.Context, userID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sum int64
	for _, e := range m.pointEvents {
		if e.UserID == userID {
			sum += e.Points
		}
	}
	return sum, nil
}

// GetRecentPointEvents возвращает последние начисления пользователя, новые первыми.
func (m *MemoryRepository) GetRecentPointEvents(_ context.Context, userID string, limit int) ([]model.PointEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.PointEvent
	for i := len(m.pointEvents) - 1; i >= 0; i-- {
		if m.pointEvents[i].UserID == userID {
			res = append(res, m.pointEvents[i])
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// CreateReservation сохраняет новую заявку.
func (m *MemoryRepository) CreateReservation(_ context.Context, res *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *res
	stored.FormData = maps.Clone(res.FormData)
	stored.Payments = nil
	m.reservations[res.ID] = stored
	return nil
}

// GetReservation возвращает заявку вместе с платежами.
func (m *MemoryRepository) GetReservation(_ context.Context, id string) (*model.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res, ok := m.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := m.withPayments(res)
	return &out, nil
}

// GetReservationsByUser возвращает заявки пользователя, новые первыми.
func (m *MemoryRepository) GetReservationsByUser(_ context.Context, userID string) ([]model.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.Reservation
	for _, r := range m.reservations {
		if r.UserID == userID {
			res = append(res, m.withPayments(r))
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

// RecordPayment сохраняет подтверждённый платёж и переводит заявку в статус PAID.
func (m *MemoryRepository) RecordPayment(_ context.Context, p *model.Payment, budget string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.reservations[p.ReservationID]
	if !ok {
		return nil, ErrNotFound
	}
	if res.Status == model.ReservationStatusPaid {
		return nil, ErrAlreadyPaid
	}
	if _, dup := m.receiptCodes[p.ReceiptCode]; dup {
		return nil, ErrDuplicateReceiptCode
	}

	stored := *p
	stored.Details = maps.Clone(p.Details)
	m.payments[p.ReservationID] = append(m.payments[p.ReservationID], stored)
	m.receiptCodes[p.ReceiptCode] = struct{}{}

	res.Status = model.ReservationStatusPaid
	if res.Budget == nil {
		b := budget
		res.Budget = &b
	}
	res.UpdatedAt = p.PaidAt
	m.reservations[res.ID] = res

	out := m.withPayments(res)
	return &out, nil
}

func (m *MemoryRepository) withPayments(res model.Reservation) model.Reservation {
	res.FormData = maps.Clone(res.FormData)

	payments := make([]model.Payment, len(m.payments[res.ID]))
	copy(payments, m.payments[res.ID])
	sort.SliceStable(payments, func(i, j int) bool {
		if !payments[i].PaidAt.Equal(payments[j].PaidAt) {
			return payments[i].PaidAt.After(payments[j].PaidAt)
		}
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})
	if len(payments) == 0 {
		payments = nil
	}
	res.Payments = payments
	return res
}
