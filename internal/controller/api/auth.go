package api

import (
	"net/http"

	"github.com/Freeeeeet/interview_scheduler/internal/interview"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		a.Error(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		a.Error(w, r, interview.BadRequest("email and password are required"))
		return
	}

	session, err := a.deps.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, session)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	user, err := a.deps.Users.GetUser(r.Context(), actor)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, user)
}

func (a *API) telegramLink(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	link, err := a.deps.Users.CreateTelegramLink(r.Context(), actor)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusCreated, link)
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.DB.Ping(r.Context()); err != nil {
		a.logger.Warn("Health check failed")
		a.Response(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	a.Response(w, http.StatusOK, map[string]string{"status": "ok"})
}
