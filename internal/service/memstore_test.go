package service_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/interview"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
)

// memStore хранилище в памяти с семантикой схемы. Частичные уникальные индексы
// возвращают *pgconn.PgError с кодом 23505. Транзакции Atomic идут параллельно:
// LockByID держит блокировку строки до конца транзакции, а при ошибке
// изменения транзакции откатываются по журналу.
//
// Вставка, конфликтующая с незакоммиченной строкой, сразу получает 23505,
// тогда как PostgreSQL дождался бы завершения первой транзакции.
type memStore struct {
	mu       sync.Mutex
	rowLocks map[string]*sync.Mutex

	users        map[int64]model.User
	slots        map[int64]model.Slot
	deletedSlots map[int64]bool
	reservations map[int64]model.Reservation
	nextID       int64
	clock        time.Time

	// Хуки вызываются до соответствующей операции, вне mu
	beforeReservationCreate func() error
	beforeSlotLock          func()
	beforeUpdateState       func()
}

func newMemStore() *memStore {
	return &memStore{
		rowLocks:     make(map[string]*sync.Mutex),
		users:        make(map[int64]model.User),
		slots:        make(map[int64]model.Slot),
		deletedSlots: make(map[int64]bool),
		reservations: make(map[int64]model.Reservation),
		clock:        time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) Users() repository.UserStore               { return memUsers{s: s} }
func (s *memStore) Slots() repository.SlotStore               { return memSlots{s: s} }
func (s *memStore) Reservations() repository.ReservationStore { return memReservations{s: s} }

func (s *memStore) Atomic(_ context.Context, fn func(q repository.Queries) error) error {
	tx := &memTx{s: s, held: make(map[string]bool)}
	defer tx.release()

	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// memTx одна транзакция: удерживаемые блокировки строк и журнал отката
type memTx struct {
	s     *memStore
	held  map[string]bool
	locks []*sync.Mutex
	undo  []func()
}

func (tx *memTx) Users() repository.UserStore               { return memUsers{s: tx.s, tx: tx} }
func (tx *memTx) Slots() repository.SlotStore               { return memSlots{s: tx.s, tx: tx} }
func (tx *memTx) Reservations() repository.ReservationStore { return memReservations{s: tx.s, tx: tx} }

// lock аналог SELECT ... FOR UPDATE. Вне транзакции ничего не блокирует.
func (tx *memTx) lock(key string) {
	if tx == nil || tx.held[key] {
		return
	}

	tx.s.mu.Lock()
	l, ok := tx.s.rowLocks[key]
	if !ok {
		l = &sync.Mutex{}
		tx.s.rowLocks[key] = l
	}
	tx.s.mu.Unlock()

	l.Lock()
	tx.held[key] = true
	tx.locks = append(tx.locks, l)
}

func (tx *memTx) release() {
	for i := len(tx.locks) - 1; i >= 0; i-- {
		tx.locks[i].Unlock()
	}
}

func (tx *memTx) rollback() {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()

	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
}

// remember записывает прежнее значение m[k] в журнал отката. Вызывается под mu.
func remember[K comparable, V any](tx *memTx, m map[K]V, k K) {
	if tx == nil {
		return
	}
	old, existed := m[k]
	tx.undo = append(tx.undo, func() {
		if existed {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
}

func rowKey(table string, id int64) string {
	return fmt.Sprintf("%s:%d", table, id)
}

// tick монотонные метки created_at/updated_at
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

// helpers for seeding

func (s *memStore) addUser(role model.Role, firstName string) model.Actor {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.id()
	s.users[id] = model.User{
		ID:        id,
		Email:     strings.ToLower(firstName) + "@example.com",
		FirstName: firstName,
		Role:      role,
		CreatedAt: s.tick(),
	}
	return model.Actor{ID: id, Role: role}
}

func (s *memStore) addSlot(teacherID int64, start time.Time, d time.Duration) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.id()
	s.slots[id] = model.Slot{ID: id, TeacherID: teacherID, StartTime: start, EndTime: start.Add(d), CreatedAt: s.tick()}
	return id
}

func (s *memStore) addReservation(candidateID, slotID int64, status model.ReservationStatus, result model.InterviewResult) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.id()
	now := s.tick()
	s.reservations[id] = model.Reservation{
		ID: id, CandidateID: candidateID, SlotID: slotID,
		Status: status, Result: result, CreatedAt: now, UpdatedAt: now,
	}
	return id
}

func (s *memStore) role(userID int64) model.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID].Role
}

func (s *memStore) reservation(id int64) model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reservations[id]
}

// setStatus запись конкурирующего процесса в обход блокировок
func (s *memStore) setStatus(id int64, status model.ReservationStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.reservations[id]
	r.Status = status
	s.reservations[id] = r
}

func (s *memStore) countReservations(match func(model.Reservation) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.reservations {
		if match(r) {
			n++
		}
	}
	return n
}

// hydrate копия бронирования со слотом, профилем учителя и кандидата. Вызывается под mu.
func (s *memStore) hydrate(r model.Reservation) *model.Reservation {
	if slot, ok := s.slots[r.SlotID]; ok {
		slot.Teacher = s.profile(slot.TeacherID)
		r.Slot = &slot
	}
	r.Candidate = s.profile(r.CandidateID)
	return &r
}

func (s *memStore) profile(userID int64) *model.PublicProfile {
	u, ok := s.users[userID]
	if !ok {
		return nil
	}
	return &model.PublicProfile{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName}
}

func live(r model.Reservation) bool {
	return r.Status != model.ReservationStatusCancelled
}

func active(r model.Reservation) bool {
	return r.Status == model.ReservationStatusPending || r.Status == model.ReservationStatusConfirmed
}

type memUsers struct {
	s  *memStore
	tx *memTx
}

func (m memUsers) Create(_ context.Context, user *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for _, u := range m.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return uniqueViolation("users_email_key")
		}
	}
	user.ID = m.s.id()
	user.CreatedAt = m.s.tick()
	remember(m.tx, m.s.users, user.ID)
	m.s.users[user.ID] = *user
	return nil
}

func (m memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	u, ok := m.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for _, u := range m.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (m memUsers) LockByID(ctx context.Context, id int64) (*model.User, error) {
	m.tx.lock(rowKey("users", id))
	return m.GetByID(ctx, id)
}

func (m memUsers) PromoteCandidate(_ context.Context, id int64) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	u, ok := m.s.users[id]
	if !ok || u.Role != model.RoleCandidate {
		return false, nil
	}
	u.Role = model.RoleStudent
	remember(m.tx, m.s.users, id)
	m.s.users[id] = u
	return true, nil
}

func (m memUsers) SetTelegramChatID(_ context.Context, id, chatID int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for uid, u := range m.s.users {
		if u.TelegramChatID != nil && *u.TelegramChatID == chatID {
			u.TelegramChatID = nil
			remember(m.tx, m.s.users, uid)
			m.s.users[uid] = u
		}
	}
	u := m.s.users[id]
	u.TelegramChatID = &chatID
	remember(m.tx, m.s.users, id)
	m.s.users[id] = u
	return nil
}

type memSlots struct {
	s  *memStore
	tx *memTx
}

func (m memSlots) Create(_ context.Context, slot *model.Slot) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	slot.ID = m.s.id()
	slot.CreatedAt = m.s.tick()
	remember(m.tx, m.s.slots, slot.ID)
	m.s.slots[slot.ID] = *slot
	return nil
}

func (m memSlots) GetByID(_ context.Context, id int64) (*model.Slot, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	slot, ok := m.s.slots[id]
	if !ok || m.s.deletedSlots[id] {
		return nil, nil
	}
	return &slot, nil
}

func (m memSlots) LockByID(ctx context.Context, id int64) (*model.Slot, error) {
	if hook := m.s.beforeSlotLock; hook != nil {
		hook()
	}
	m.tx.lock(rowKey("slots", id))
	return m.GetByID(ctx, id)
}

func (m memSlots) FindOpen(_ context.Context, filter model.SlotFilter) ([]*model.Slot, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	taken := make(map[int64]bool)
	for _, r := range m.s.reservations {
		if live(r) {
			taken[r.SlotID] = true
		}
	}

	var out []*model.Slot
	for _, slot := range m.s.slots {
		switch {
		case m.s.deletedSlots[slot.ID], taken[slot.ID]:
			continue
		case filter.TeacherID != nil && slot.TeacherID != *filter.TeacherID:
			continue
		case filter.From != nil && slot.StartTime.Before(*filter.From):
			continue
		case filter.To != nil && !slot.StartTime.Before(*filter.To):
			continue
		case filter.At != nil && !slot.Contains(*filter.At):
			continue
		}
		slot.Teacher = m.s.profile(slot.TeacherID)
		out = append(out, &slot)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		if a.TeacherID != b.TeacherID {
			return a.TeacherID < b.TeacherID
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (m memSlots) CountLiveReservations(_ context.Context, slotID int64) (int, error) {
	return m.s.countReservations(func(r model.Reservation) bool { return r.SlotID == slotID && live(r) }), nil
}

func (m memSlots) Delete(_ context.Context, id int64) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.slots[id]; !ok || m.s.deletedSlots[id] {
		return false, nil
	}
	remember(m.tx, m.s.deletedSlots, id)
	m.s.deletedSlots[id] = true
	return true, nil
}

type memReservations struct {
	s  *memStore
	tx *memTx
}

func (m memReservations) Create(_ context.Context, res *model.Reservation) error {
	if hook := m.s.beforeReservationCreate; hook != nil {
		if err := hook(); err != nil {
			return err
		}
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for _, r := range m.s.reservations {
		if r.SlotID == res.SlotID && live(r) {
			return uniqueViolation(repository.ConstraintSlotLive)
		}
		if r.CandidateID == res.CandidateID && active(r) {
			return uniqueViolation(repository.ConstraintCandidateActive)
		}
	}

	res.ID = m.s.id()
	res.CreatedAt = m.s.tick()
	res.UpdatedAt = res.CreatedAt
	stored := *res
	stored.Slot, stored.Candidate = nil, nil
	remember(m.tx, m.s.reservations, res.ID)
	m.s.reservations[res.ID] = stored
	return nil
}

func (m memReservations) GetByID(_ context.Context, id int64) (*model.Reservation, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	r, ok := m.s.reservations[id]
	if !ok {
		return nil, nil
	}
	return m.s.hydrate(r), nil
}

func (m memReservations) LockByID(ctx context.Context, id int64) (*model.Reservation, error) {
	m.tx.lock(rowKey("reservations", id))
	return m.GetByID(ctx, id)
}

func (m memReservations) UpdateState(_ context.Context, res *model.Reservation, prev model.ReservationStatus) (bool, error) {
	if hook := m.s.beforeUpdateState; hook != nil {
		hook()
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	r, ok := m.s.reservations[res.ID]
	if !ok || r.Status != prev {
		return false, nil
	}
	r.Status = res.Status
	r.Result = res.Result
	r.MeetingLink = res.MeetingLink
	r.UpdatedAt = m.s.tick()
	remember(m.tx, m.s.reservations, res.ID)
	m.s.reservations[res.ID] = r

	res.UpdatedAt = r.UpdatedAt
	return true, nil
}

func (m memReservations) CountActiveForTeacher(_ context.Context, teacherID int64) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	n := 0
	for _, r := range m.s.reservations {
		if active(r) && m.s.slots[r.SlotID].TeacherID == teacherID {
			n++
		}
	}
	return n, nil
}

func (m memReservations) CandidateHistory(_ context.Context, candidateID int64) (model.CandidateHistory, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var h model.CandidateHistory
	for _, r := range m.s.reservations {
		if r.CandidateID != candidateID {
			continue
		}
		h.HasActive = h.HasActive || active(r)
		h.HasCompleted = h.HasCompleted || r.Status == model.ReservationStatusCompleted
	}
	return h, nil
}

func (m memReservations) list(match func(model.Reservation) bool, less func(a, b *model.Reservation) bool) []*model.Reservation {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var out []*model.Reservation
	for _, r := range m.s.reservations {
		if match(r) {
			out = append(out, m.s.hydrate(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (m memReservations) ListByCandidate(_ context.Context, candidateID int64) ([]*model.Reservation, error) {
	return m.list(
		func(r model.Reservation) bool { return r.CandidateID == candidateID },
		func(a, b *model.Reservation) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		},
	), nil
}

func (m memReservations) ListByTeacher(_ context.Context, teacherID int64) ([]*model.Reservation, error) {
	return m.list(
		func(r model.Reservation) bool { return m.s.slots[r.SlotID].TeacherID == teacherID },
		func(a, b *model.Reservation) bool { return a.Slot.StartTime.Before(b.Slot.StartTime) },
	), nil
}

func (m memReservations) ListDueReminders(_ context.Context, from, until time.Time) ([]*model.Reservation, error) {
	return m.list(
		func(r model.Reservation) bool {
			start := m.s.slots[r.SlotID].StartTime
			return r.Status == model.ReservationStatusConfirmed && r.ReminderSentAt == nil &&
				!start.Before(from) && start.Before(until)
		},
		func(a, b *model.Reservation) bool { return a.Slot.StartTime.Before(b.Slot.StartTime) },
	), nil
}

func (m memReservations) MarkReminded(_ context.Context, id int64, at time.Time) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	r, ok := m.s.reservations[id]
	if !ok || r.ReminderSentAt != nil || r.Status != model.ReservationStatusConfirmed {
		return false, nil
	}
	r.ReminderSentAt = &at
	remember(m.tx, m.s.reservations, id)
	m.s.reservations[id] = r
	return true, nil
}

// recordingDispatcher запоминает выполненные эффекты
type recordingDispatcher struct {
	mu      sync.Mutex
	effects []interview.Effect
}

func (d *recordingDispatcher) Dispatch(_ context.Context, effects []interview.Effect) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.effects = append(d.effects, effects...)
}

func (d *recordingDispatcher) count(kind interview.EffectKind) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, e := range d.effects {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (d *recordingDispatcher) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.effects = nil
}
