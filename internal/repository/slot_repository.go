package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

type SlotRepository struct {
	db base.Querier
}

func NewSlotRepository(db base.Querier) *SlotRepository {
	return &SlotRepository{db: db}
}

// Create создаёт новый слот
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO slots (teacher_id, start_time, end_time)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		slot.TeacherID,
		slot.StartTime,
		slot.EndTime,
	).Scan(&slot.ID, &slot.CreatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

const slotSelect = `SELECT id, teacher_id, start_time, end_time, created_at FROM slots WHERE id = $1 AND deleted_at IS NULL`

// GetByID получает неудалённый слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.Slot, error) {
	return r.get(ctx, slotSelect, id)
}

// LockByID получает неудалённый слот и блокирует его строку до конца транзакции.
// Если слот удалили параллельно, после ожидания блокировки вернётся nil.
func (r *SlotRepository) LockByID(ctx context.Context, id int64) (*model.Slot, error) {
	return r.get(ctx, slotSelect+` FOR UPDATE`, id)
}

func (r *SlotRepository) get(ctx context.Context, query string, id int64) (*model.Slot, error) {
	var slot model.Slot
	err := r.db.QueryRow(ctx, query, id).Scan(
		&slot.ID,
		&slot.TeacherID,
		&slot.StartTime,
		&slot.EndTime,
		&slot.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}

	return &slot, nil
}

// FindOpen возвращает свободные слоты (без бронирований или только с отменёнными)
// вместе с профилем учителя. Порядок: start_time, teacher_id, id.
func (r *SlotRepository) FindOpen(ctx context.Context, filter model.SlotFilter) ([]*model.Slot, error) {
	conditions := []string{"s.deleted_at IS NULL", `NOT EXISTS (
			SELECT 1 FROM reservations r
			WHERE r.slot_id = s.id AND r.status <> 'cancelled'
		)`}
	var args []any

	addCondition := func(format string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(format, len(args)))
	}

	if filter.TeacherID != nil {
		addCondition("s.teacher_id = $%d", *filter.TeacherID)
	}
	if filter.From != nil {
		addCondition("s.start_time >= $%d", *filter.From)
	}
	if filter.To != nil {
		addCondition("s.start_time < $%d", *filter.To)
	}
	if filter.At != nil {
		// Полуинтервал [start_time, end_time)
		args = append(args, *filter.At)
		conditions = append(conditions, fmt.Sprintf("s.start_time <= $%d AND $%d < s.end_time", len(args), len(args)))
	}

	query := `
		SELECT s.id, s.teacher_id, s.start_time, s.end_time, s.created_at,
		       u.first_name, u.last_name
		FROM slots s
		JOIN users u ON u.id = s.teacher_id
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY s.start_time, s.teacher_id, s.id
	`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find open slots: %w", err)
	}
	defer rows.Close()

	slots, err := scanSlotsWithTeacher(rows)
	if err != nil {
		return nil, fmt.Errorf("find open slots: %w", err)
	}

	return slots, nil
}

func scanSlotsWithTeacher(rows pgx.Rows) ([]*model.Slot, error) {
	var slots []*model.Slot
	for rows.Next() {
		var slot model.Slot
		teacher := &model.PublicProfile{}
		err := rows.Scan(
			&slot.ID,
			&slot.TeacherID,
			&slot.StartTime,
			&slot.EndTime,
			&slot.CreatedAt,
			&teacher.FirstName,
			&teacher.LastName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		teacher.ID = slot.TeacherID
		slot.Teacher = teacher
		slots = append(slots, &slot)
	}

	return slots, rows.Err()
}

// CountLiveReservations количество неотменённых бронирований слота
func (r *SlotRepository) CountLiveReservations(ctx context.Context, slotID int64) (int, error) {
	query := `SELECT COUNT(*) FROM reservations WHERE slot_id = $1 AND status <> 'cancelled'`

	var count int
	if err := r.db.QueryRow(ctx, query, slotID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count live reservations: %w", err)
	}

	return count, nil
}

// Delete помечает слот удалённым. Строка остаётся, чтобы бронирования на нём
// сохранились в истории. false если слота уже нет.
func (r *SlotRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE slots SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return false, fmt.Errorf("delete slot: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
