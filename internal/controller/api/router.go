package api

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/auth"
	"github.com/Freeeeeet/interview_scheduler/internal/interview"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/notify"
	"github.com/Freeeeeet/interview_scheduler/internal/service"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type AvailabilityService interface {
	ListOpenSlots(ctx context.Context, query service.OpenSlotsQuery) ([]*model.Slot, error)
	CreateSlot(ctx context.Context, actor model.Actor, startTime, endTime time.Time) (*model.Slot, error)
	CreateSlotsBulk(ctx context.Context, actor model.Actor, req service.BulkSlotsRequest) ([]*model.Slot, error)
	DeleteSlot(ctx context.Context, actor model.Actor, slotID int64) error
}

type ReservationService interface {
	RequestReservation(ctx context.Context, actor model.Actor, requestedAt time.Time) (*service.Allocation, error)
	UpdateReservation(ctx context.Context, actor model.Actor, reservationID int64, cmd interview.Command) (*model.Reservation, error)
	GetReservation(ctx context.Context, actor model.Actor, reservationID int64) (*model.Reservation, error)
	ListMine(ctx context.Context, actor model.Actor) ([]*model.Reservation, error)
	ListCandidateReservations(ctx context.Context, actor model.Actor) ([]*model.Reservation, error)
}

type UserService interface {
	Login(ctx context.Context, email, password string) (*service.Session, error)
	GetUser(ctx context.Context, actor model.Actor) (*model.User, error)
	CreateTelegramLink(ctx context.Context, actor model.Actor) (*service.TelegramLink, error)
}

type NotificationService interface {
	List(ctx context.Context, actor model.Actor) (*service.NotificationFeed, error)
	MarkRead(ctx context.Context, actor model.Actor, id int64) error
}

type ExportService interface {
	ExportTeacherInterviews(ctx context.Context, actor model.Actor) (*bytes.Buffer, string, error)
	ReservationCalendar(ctx context.Context, actor model.Actor, reservationID int64) (string, error)
}

type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps зависимости HTTP-слоя
type Deps struct {
	Availability  AvailabilityService
	Reservations  ReservationService
	Users         UserService
	Notifications NotificationService
	Export        ExportService
	Tokens        TokenParser
	DB            Pinger
	Hub           *notify.Hub
	CORSOrigins   []string
	Logger        *zap.Logger
}

type API struct {
	router   *mux.Router
	upgrader websocket.Upgrader
	deps     Deps
	logger   *zap.Logger
}

func NewAPI(deps Deps) *API {
	r := mux.NewRouter()
	r = r.PathPrefix("/api").Subrouter()

	a := &API{
		router: r,
		deps:   deps,
		logger: deps.Logger,
	}
	a.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     a.checkOrigin,
	}
	a.RegisterRoutes()
	return a
}

// Router маршрутизатор без внешних middleware (для тестов)
func (a *API) Router() *mux.Router {
	return a.router
}

// Handler корневой обработчик: восстановление после паники, CORS, прокси-заголовки, лог запросов
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = a.requestLogger(h)
	h = handlers.ProxyHeaders(h)
	h = handlers.CORS(
		handlers.AllowedOrigins(a.deps.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.AllowCredentials(),
	)(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{a.logger}))(h)
	return h
}

func (a *API) RegisterRoutes() {
	a.router.HandleFunc("/health", a.health).Methods(http.MethodGet)
	a.router.HandleFunc("/auth/login", a.login).Methods(http.MethodPost)
	a.router.HandleFunc("/ws", a.notificationStream).Methods(http.MethodGet)

	private := a.router.NewRoute().Subrouter()
	private.Use(a.authenticate)

	private.HandleFunc("/me", a.me).Methods(http.MethodGet)
	private.HandleFunc("/me/telegram-link", a.telegramLink).Methods(http.MethodPost)

	private.HandleFunc("/reservable-slots", a.reservableSlots).Methods(http.MethodGet)
	private.HandleFunc("/slots", a.createSlot).Methods(http.MethodPost)
	private.HandleFunc("/slots/bulk", a.createSlotsBulk).Methods(http.MethodPost)
	private.HandleFunc("/slots/{id:[0-9]+}", a.deleteSlot).Methods(http.MethodDelete)

	private.HandleFunc("/reservations", a.createReservation).Methods(http.MethodPost)
	private.HandleFunc("/reservations", a.listReservations).Methods(http.MethodGet)
	private.HandleFunc("/reservations/export", a.exportReservations).Methods(http.MethodGet)
	private.HandleFunc("/reservations/{id:[0-9]+}", a.getReservation).Methods(http.MethodGet)
	private.HandleFunc("/reservations/{id:[0-9]+}", a.updateReservation).Methods(http.MethodPatch)
	private.HandleFunc("/reservations/{id:[0-9]+}/calendar.ics", a.reservationCalendar).Methods(http.MethodGet)

	private.HandleFunc("/notifications", a.listNotifications).Methods(http.MethodGet)
	private.HandleFunc("/notifications/{id:[0-9]+}/read", a.markNotificationRead).Methods(http.MethodPost)
}
