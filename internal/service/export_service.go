package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/interview"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var ErrNotConfirmed = &interview.Error{Kind: interview.KindConflict, Code: "not_confirmed", Message: "interview is not confirmed"}

// ExportService выгрузки: таблица собеседований учителя и приглашение в календарь
type ExportService struct {
	reservations *ReservationService
	location     *time.Location
	baseURL      string
	logger       *zap.Logger
}

func NewExportService(reservations *ReservationService, location *time.Location, baseURL string, logger *zap.Logger) *ExportService {
	return &ExportService{
		reservations: reservations,
		location:     location,
		baseURL:      strings.TrimRight(baseURL, "/"),
		logger:       logger,
	}
}

var (
	statusTitles = map[model.ReservationStatus]string{
		model.ReservationStatusPending:   "Ожидает подтверждения",
		model.ReservationStatusConfirmed: "Подтверждено",
		model.ReservationStatusCancelled: "Отменено",
		model.ReservationStatusCompleted: "Проведено",
	}
	resultTitles = map[model.InterviewResult]string{
		model.InterviewResultUnset:    "-",
		model.InterviewResultAccepted: "Принят",
		model.InterviewResultRejected: "Не принят",
	}
)

// ExportTeacherInterviews таблица .xlsx со всеми собеседованиями учителя.
// Возвращает содержимое файла и предлагаемое имя.
func (s *ExportService) ExportTeacherInterviews(ctx context.Context, actor model.Actor) (*bytes.Buffer, string, error) {
	if !actor.IsTeacher() {
		return nil, "", interview.ErrForbidden
	}

	list, err := s.reservations.ListMine(ctx, actor)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Собеседования"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, "", fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	// Удаляем лист по умолчанию
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, "", fmt.Errorf("delete default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("create header style: %w", err)
	}

	headers := []string{"№", "Дата", "Время", "Кандидат", "Статус", "Результат", "Ссылка на встречу"}
	widths := []float64{8, 12, 14, 28, 24, 14, 40}
	for i, title := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, widths[i])
		f.SetCellValue(sheet, cell(col, 1), title)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	f.SetCellStyle(sheet, "A1", cell(lastCol, 1), headerStyle)

	row := 2
	for _, res := range list {
		start := res.Slot.StartTime.In(s.location)
		end := res.Slot.EndTime.In(s.location)

		candidate := fmt.Sprintf("#%d", res.CandidateID)
		if res.Candidate != nil {
			candidate = res.Candidate.FullName()
		}

		values := []any{
			res.ID,
			start.Format("02.01.2006"),
			fmt.Sprintf("%s-%s", start.Format("15:04"), end.Format("15:04")),
			candidate,
			statusTitles[res.Status],
			resultTitles[res.Result],
			res.MeetingLink,
		}
		for i, v := range values {
			col, _ := excelize.ColumnNumberToName(i + 1)
			f.SetCellValue(sheet, cell(col, row), v)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("Failed to write xlsx", zap.Error(err))
		return nil, "", fmt.Errorf("write xlsx: %w", err)
	}

	filename := fmt.Sprintf("interviews_%s.xlsx", time.Now().In(s.location).Format("2006-01-02"))
	return buf, filename, nil
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// ReservationCalendar приглашение .ics на подтверждённое собеседование
func (s *ExportService) ReservationCalendar(ctx context.Context, actor model.Actor, reservationID int64) (string, error) {
	res, err := s.reservations.GetReservation(ctx, actor, reservationID)
	if err != nil {
		return "", err
	}
	if res.Status != model.ReservationStatusConfirmed {
		return "", ErrNotConfirmed
	}

	return BuildCalendar(res, s.baseURL, time.Now()), nil
}

// BuildCalendar собирает iCalendar с одним событием собеседования
func BuildCalendar(res *model.Reservation, baseURL string, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//interview-scheduler//RU")

	event := cal.AddEvent(fmt.Sprintf("reservation-%d@interview-scheduler", res.ID))
	event.SetDtStampTime(now.UTC())
	event.SetModifiedAt(res.UpdatedAt.UTC())
	event.SetStartAt(res.Slot.StartTime.UTC())
	event.SetEndAt(res.Slot.EndTime.UTC())
	event.SetSummary("Вступительное собеседование")
	event.SetLocation(res.MeetingLink)

	description := "Ссылка на встречу: " + res.MeetingLink
	if res.Slot.Teacher != nil {
		description = fmt.Sprintf("Преподаватель: %s\n%s", res.Slot.Teacher.FullName(), description)
	}
	event.SetDescription(description)

	if baseURL != "" {
		event.SetURL(baseURL + interview.ReservationLink(res.ID))
	}

	return cal.Serialize()
}
