package api

import (
	"net/http"
	"strconv"

	"github.com/Freeeeeet/interview_scheduler/internal/interview"
)

type createReservationRequest struct {
	RequestedTimestamp Timestamp `json:"requestedTimestamp"`
}

func (a *API) createReservation(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	var req createReservationRequest
	if err := decode(r, &req); err != nil {
		a.Error(w, r, err)
		return
	}

	allocation, err := a.deps.Reservations.RequestReservation(r.Context(), actor, req.RequestedTimestamp.Time)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusCreated, allocation)
}

func (a *API) listReservations(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	list, err := a.deps.Reservations.ListMine(r.Context(), actor)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, nonNil(list))
}

func (a *API) getReservation(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		a.Error(w, r, err)
		return
	}

	res, err := a.deps.Reservations.GetReservation(r.Context(), actor, id)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, res)
}

func (a *API) updateReservation(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		a.Error(w, r, err)
		return
	}

	var cmd interview.Command
	if err := decode(r, &cmd); err != nil {
		a.Error(w, r, err)
		return
	}
	if cmd.Status == "" {
		a.Error(w, r, interview.BadRequest("status is required"))
		return
	}

	res, err := a.deps.Reservations.UpdateReservation(r.Context(), actor, id, cmd)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, res)
}

func (a *API) exportReservations(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	buf, filename, err := a.deps.Export.ExportTeacherInterviews(r.Context(), actor)
	if err != nil {
		a.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (a *API) reservationCalendar(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		a.Error(w, r, err)
		return
	}

	calendar, err := a.deps.Export.ReservationCalendar(r.Context(), actor, id)
	if err != nil {
		a.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote("interview-"+strconv.FormatInt(id, 10)+".ics"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(calendar))
}
