package api

import (
	"net/http"
	"net/url"

	"github.com/Freeeeeet/interview_scheduler/internal/interview"
	"github.com/Freeeeeet/interview_scheduler/internal/notify"
	"go.uber.org/zap"
)

func (a *API) listNotifications(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	feed, err := a.deps.Notifications.List(r.Context(), actor)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, feed)
}

func (a *API) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		a.Error(w, r, err)
		return
	}

	if err := a.deps.Notifications.MarkRead(r.Context(), actor, id); err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusNoContent, nil)
}

// notificationStream поток уведомлений по WebSocket. Браузер не умеет ставить заголовок Authorization
// при открытии WebSocket, поэтому токен передаётся в параметре token.
func (a *API) notificationStream(w http.ResponseWriter, r *http.Request) {
	claims, err := a.deps.Tokens.Parse(r.URL.Query().Get("token"))
	if err != nil {
		a.Error(w, r, interview.ErrUnauthorized)
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	a.deps.Hub.Serve(conn, notify.NewClient(claims.UserID))
}

// checkOrigin пропускает тот же хост и источники из CORS_ORIGINS
func (a *API) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range a.deps.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}
