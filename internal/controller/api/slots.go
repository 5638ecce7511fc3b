package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/interview"
	"github.com/Freeeeeet/interview_scheduler/internal/service"
)

// reservableSlots свободные слоты, а с mine=1 бронирования самого кандидата
func (a *API) reservableSlots(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	q := r.URL.Query()

	if mine := q.Get("mine"); mine == "1" || mine == "true" {
		list, err := a.deps.Reservations.ListCandidateReservations(r.Context(), actor)
		if err != nil {
			a.Error(w, r, err)
			return
		}
		a.Response(w, http.StatusOK, nonNil(list))
		return
	}

	query := service.OpenSlotsQuery{Date: q.Get("date")}
	if raw := q.Get("teacherId"); raw != "" {
		teacherID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			a.Error(w, r, interview.BadRequest("invalid teacherId"))
			return
		}
		query.TeacherID = &teacherID
	}

	slots, err := a.deps.Availability.ListOpenSlots(r.Context(), query)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, nonNil(slots))
}

type createSlotRequest struct {
	StartTime Timestamp `json:"startTime"`
	EndTime   Timestamp `json:"endTime"`
}

func (a *API) createSlot(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	var req createSlotRequest
	if err := decode(r, &req); err != nil {
		a.Error(w, r, err)
		return
	}

	slot, err := a.deps.Availability.CreateSlot(r.Context(), actor, req.StartTime.Time, req.EndTime.Time)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusCreated, slot)
}

type createSlotsBulkRequest struct {
	FirstStart      Timestamp `json:"firstStart"`
	DurationMinutes int       `json:"durationMinutes"`
	Count           int       `json:"count"`
	Weekdays        []int     `json:"weekdays"`
	Weeks           int       `json:"weeks"`
}

func (a *API) createSlotsBulk(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	var req createSlotsBulkRequest
	if err := decode(r, &req); err != nil {
		a.Error(w, r, err)
		return
	}

	bulk := service.BulkSlotsRequest{
		FirstStart:      req.FirstStart.Time,
		DurationMinutes: req.DurationMinutes,
		Count:           req.Count,
		Weeks:           req.Weeks,
	}
	for _, wd := range req.Weekdays {
		bulk.Weekdays = append(bulk.Weekdays, time.Weekday(wd))
	}

	slots, err := a.deps.Availability.CreateSlotsBulk(r.Context(), actor, bulk)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusCreated, slots)
}

func (a *API) deleteSlot(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		a.Error(w, r, err)
		return
	}

	if err := a.deps.Availability.DeleteSlot(r.Context(), actor, id); err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, map[string]int64{"deleted": id})
}

// nonNil пустой список вместо null в JSON
func nonNil[T any](list []*T) []*T {
	if list == nil {
		return []*T{}
	}
	return list
}
