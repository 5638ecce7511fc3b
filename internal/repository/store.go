package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	LockByID(ctx context.Context, id int64) (*model.User, error)
	PromoteCandidate(ctx context.Context, id int64) (bool, error)
	SetTelegramChatID(ctx context.Context, id, chatID int64) error
}

type SlotStore interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id int64) (*model.Slot, error)
	LockByID(ctx context.Context, id int64) (*model.Slot, error)
	FindOpen(ctx context.Context, filter model.SlotFilter) ([]*model.Slot, error)
	CountLiveReservations(ctx context.Context, slotID int64) (int, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type ReservationStore interface {
	Create(ctx context.Context, res *model.Reservation) error
	GetByID(ctx context.Context, id int64) (*model.Reservation, error)
	LockByID(ctx context.Context, id int64) (*model.Reservation, error)
	UpdateState(ctx context.Context, res *model.Reservation, prev model.ReservationStatus) (bool, error)
	CountActiveForTeacher(ctx context.Context, teacherID int64) (int, error)
	CandidateHistory(ctx context.Context, candidateID int64) (model.CandidateHistory, error)
	ListByCandidate(ctx context.Context, candidateID int64) ([]*model.Reservation, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]*model.Reservation, error)
	ListDueReminders(ctx context.Context, from, until time.Time) ([]*model.Reservation, error)
	MarkReminded(ctx context.Context, id int64, at time.Time) (bool, error)
}

// Queries набор репозиториев поверх одного соединения (пула или транзакции)
type Queries interface {
	Users() UserStore
	Slots() SlotStore
	Reservations() ReservationStore
}

type queries struct {
	users        *UserRepository
	slots        *SlotRepository
	reservations *ReservationRepository
}

func newQueries(db base.Querier) *queries {
	return &queries{
		users:        NewUserRepository(db),
		slots:        NewSlotRepository(db),
		reservations: NewReservationRepository(db),
	}
}

func (q *queries) Users() UserStore               { return q.users }
func (q *queries) Slots() SlotStore               { return q.slots }
func (q *queries) Reservations() ReservationStore { return q.reservations }

// Store репозитории поверх пула и запуск функций в транзакции
type Store struct {
	*queries
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		queries: newQueries(pool),
		pool:    pool,
	}
}

// Atomic выполняет fn в транзакции READ COMMITTED. Ошибка fn откатывает транзакцию.
// Репозитории, полученные через q, работают внутри этой транзакции.
func (s *Store) Atomic(ctx context.Context, fn func(q Queries) error) error {
	// Начинаем транзакцию
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(newQueries(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Ping проверяет соединение с базой
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
