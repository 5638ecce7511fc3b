package repository_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reservationColumns = []string{
	"id", "candidate_id", "slot_id", "status", "result", "meeting_link",
	"reminder_sent_at", "created_at", "updated_at",
	"slot_id", "teacher_id", "start_time", "end_time", "slot_created_at",
	"teacher_first_name", "teacher_last_name",
	"candidate_first_name", "candidate_last_name",
}

func TestReservationRepository_UpdateState(t *testing.T) {
	t.Parallel()

	updatedAt := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	casQuery := sqlFragments("UPDATE reservations", "WHERE id = $1 AND status = $5", "RETURNING updated_at")

	next := func() *model.Reservation {
		return &model.Reservation{
			ID:          7,
			Status:      model.ReservationStatusConfirmed,
			Result:      model.InterviewResultUnset,
			MeetingLink: "https://meet/x",
		}
	}

	t.Run("applies when status is unchanged", func(t *testing.T) {
		t.Parallel()
		mock := setupPgxMock(t)

		mock.ExpectQuery(casQuery).
			WithArgs(int64(7), model.ReservationStatusConfirmed, model.InterviewResultUnset, "https://meet/x", model.ReservationStatusPending).
			WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(updatedAt))

		res := next()
		ok, err := repository.NewReservationRepository(mock).UpdateState(t.Context(), res, model.ReservationStatusPending)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, updatedAt, res.UpdatedAt)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no row when status changed concurrently", func(t *testing.T) {
		t.Parallel()
		mock := setupPgxMock(t)

		mock.ExpectQuery(casQuery).
			WithArgs(int64(7), model.ReservationStatusConfirmed, model.InterviewResultUnset, "https://meet/x", model.ReservationStatusPending).
			WillReturnRows(pgxmock.NewRows([]string{"updated_at"}))

		ok, err := repository.NewReservationRepository(mock).UpdateState(t.Context(), next(), model.ReservationStatusPending)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReservationRepository_CountActiveForTeacher(t *testing.T) {
	t.Parallel()
	mock := setupPgxMock(t)

	mock.ExpectQuery(sqlFragments("JOIN slots s ON s.id = r.slot_id", "s.teacher_id = $1 AND r.status IN ('pending', 'confirmed')")).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repository.NewReservationRepository(mock).CountActiveForTeacher(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_CandidateHistory(t *testing.T) {
	t.Parallel()
	mock := setupPgxMock(t)

	mock.ExpectQuery(sqlFragments(
		"bool_or(status IN ('pending', 'confirmed'))",
		"bool_or(status = 'completed')",
		"WHERE candidate_id = $1",
	)).
		WithArgs(int64(9)).
		WillReturnRows(pgxmock.NewRows([]string{"has_active", "has_completed"}).AddRow(false, true))

	history, err := repository.NewReservationRepository(mock).CandidateHistory(t.Context(), 9)
	require.NoError(t, err)
	assert.Equal(t, model.CandidateHistory{HasActive: false, HasCompleted: true}, history)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_Create(t *testing.T) {
	t.Parallel()

	insertQuery := sqlFragments("INSERT INTO reservations (candidate_id, slot_id, status, result)", "RETURNING id, created_at, updated_at")

	t.Run("created", func(t *testing.T) {
		t.Parallel()
		mock := setupPgxMock(t)
		now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

		mock.ExpectQuery(insertQuery).
			WithArgs(int64(9), int64(5), model.ReservationStatusPending, model.InterviewResultUnset).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(11), now, now))

		res := &model.Reservation{CandidateID: 9, SlotID: 5, Status: model.ReservationStatusPending, Result: model.InterviewResultUnset}
		require.NoError(t, repository.NewReservationRepository(mock).Create(t.Context(), res))
		assert.Equal(t, int64(11), res.ID)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("partial index violation keeps constraint name", func(t *testing.T) {
		t.Parallel()
		mock := setupPgxMock(t)

		mock.ExpectQuery(insertQuery).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: repository.ConstraintSlotLive})

		err := repository.NewReservationRepository(mock).Create(t.Context(), &model.Reservation{CandidateID: 9, SlotID: 5})
		require.Error(t, err)
		assert.True(t, base.IsUniqueViolation(err))
		assert.Equal(t, repository.ConstraintSlotLive, base.ConstraintName(err))
	})
}

func TestReservationRepository_LockByID(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	created := start.Add(-time.Hour)

	t.Run("loads slot and participants", func(t *testing.T) {
		t.Parallel()
		mock := setupPgxMock(t)

		mock.ExpectQuery(sqlFragments("FROM reservations r", "WHERE r.id = $1 FOR UPDATE OF r")).
			WithArgs(int64(7)).
			WillReturnRows(pgxmock.NewRows(reservationColumns).AddRow(
				int64(7), int64(9), int64(5), model.ReservationStatusPending, model.InterviewResultUnset, "",
				nil, created, created,
				int64(5), int64(1), start, start.Add(time.Hour), created,
				"Анна", "Петрова",
				"Иван", "",
			))

		res, err := repository.NewReservationRepository(mock).LockByID(t.Context(), 7)
		require.NoError(t, err)
		require.NotNil(t, res)

		assert.Equal(t, model.ReservationStatusPending, res.Status)
		assert.Nil(t, res.ReminderSentAt)
		assert.Equal(t, int64(1), res.TeacherID())
		assert.Equal(t, "Анна Петрова", res.Slot.Teacher.FullName())
		assert.Equal(t, int64(9), res.Candidate.ID)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		mock := setupPgxMock(t)

		mock.ExpectQuery(sqlFragments("FOR UPDATE OF r")).
			WithArgs(int64(7)).
			WillReturnRows(pgxmock.NewRows(reservationColumns))

		res, err := repository.NewReservationRepository(mock).LockByID(t.Context(), 7)
		require.NoError(t, err)
		assert.Nil(t, res)
	})
}

func TestReservationRepository_MarkReminded(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta(`WHERE id = $1 AND reminder_sent_at IS NULL AND status = 'confirmed'`)

	mock := setupPgxMock(t)
	mock.ExpectExec(query).WithArgs(int64(7), at).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(query).WithArgs(int64(7), at).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := repository.NewReservationRepository(mock)

	ok, err := repo.MarkReminded(t.Context(), 7, at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkReminded(t.Context(), 7, at)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}
