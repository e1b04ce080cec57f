package server

import (
	"clipboard-sync/internal/auth"
	"clipboard-sync/internal/clipboard"
	"clipboard-sync/internal/service"
	"clipboard-sync/internal/storage"
	"clipboard-sync/pkg/types"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// maxBodySize leaves room for JSON framing around the largest item
const maxBodySize = storage.MaxStorageSize + 1<<20

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respond(w http.ResponseWriter, httpStatus int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(resp)
}

func respondSuccess(w http.ResponseWriter, data interface{}) {
	respond(w, http.StatusOK, Response{Status: "success", Data: data})
}

func respondCreated(w http.ResponseWriter, data interface{}) {
	respond(w, http.StatusCreated, Response{Status: "success", Data: data})
}

func respondMessage(w http.ResponseWriter, message string) {
	respond(w, http.StatusOK, Response{Status: "success", Message: message})
}

func respondError(w http.ResponseWriter, httpStatus int, message string) {
	respond(w, httpStatus, Response{Status: "error", Message: message})
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrNotShared):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, types.ErrEmptyContent),
		errors.Is(err, types.ErrInvalidType),
		errors.Is(err, types.ErrInvalidPermission),
		errors.Is(err, types.ErrMissingCreator),
		errors.Is(err, types.ErrInvalidURL),
		errors.Is(err, clipboard.ErrUnsupportedType):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrReadOnlyShare):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNoMonitor), errors.Is(err, auth.ErrDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.Logger.Error("Request failed", zap.Error(err))
		respondError(w, status, "internal error")
		return
	}
	respondError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// queryInt parses a non-negative integer query parameter
func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return def
}

func queryBool(r *http.Request, key string) (bool, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
