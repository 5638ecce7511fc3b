package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Freeeeeet/interview_scheduler/internal/interview"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var statusByKind = map[interview.Kind]int{
	interview.KindUnauthorized: http.StatusUnauthorized,
	interview.KindForbidden:    http.StatusForbidden,
	interview.KindBadRequest:   http.StatusBadRequest,
	interview.KindNotFound:     http.StatusNotFound,
	interview.KindConflict:     http.StatusConflict,
}

func (a *API) Response(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

// Error пишет доменную ошибку с её статусом. Прочие ошибки логируются,
// клиент получает 500 без подробностей.
func (a *API) Error(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *interview.Error
	if errors.As(err, &domainErr) {
		status, ok := statusByKind[domainErr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		a.Response(w, status, ErrorResponse{Error: domainErr.Message, Code: domainErr.Code})
		return
	}

	a.logger.Error("Request failed",
		zap.Error(err),
		zap.String("request_id", requestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
	a.Response(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "internal"})
}

// decode читает JSON-тело запроса
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return interview.BadRequest("invalid request body")
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, interview.BadRequest("invalid id")
	}
	return id, nil
}
