package server

import (
	"clipboard-sync/internal/preview"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// callableRequest and callableResponse follow the callable function wire
// format: {"data": ...} in, {"result": ...} or {"error": ...} out.
type callableRequest struct {
	Data json.RawMessage `json:"data"`
}

type callableError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type callableResponse struct {
	Result interface{}    `json:"result,omitempty"`
	Error  *callableError `json:"error,omitempty"`
}

type linkPreviewArgs struct {
	URL string `json:"url"`
}

var callableHTTPStatus = map[string]int{
	preview.CodeInvalidArgument: http.StatusBadRequest,
	preview.CodeNotFound:        http.StatusNotFound,
	preview.CodeUnavailable:     http.StatusServiceUnavailable,
	preview.CodeInternal:        http.StatusInternalServerError,
}

func writeCallable(w http.ResponseWriter, httpStatus int, resp callableResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(resp)
}

func writeCallableError(w http.ResponseWriter, code, message string) {
	status, ok := callableHTTPStatus[code]
	if !ok {
		code, status = preview.CodeInternal, http.StatusInternalServerError
	}
	writeCallable(w, status, callableResponse{Error: &callableError{
		// invalid-argument becomes INVALID_ARGUMENT
		Status:  strings.ToUpper(strings.ReplaceAll(code, "-", "_")),
		Message: message,
	}})
}

func (s *Server) handleLinkPreview(w http.ResponseWriter, r *http.Request) {
	if s.Scraper == nil {
		writeCallableError(w, preview.CodeUnavailable, "link previews are not configured")
		return
	}

	var req callableRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeCallableError(w, preview.CodeInvalidArgument, "request body must be {\"data\": {...}}")
		return
	}
	var args linkPreviewArgs
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &args); err != nil {
			writeCallableError(w, preview.CodeInvalidArgument, "data must be an object with a url")
			return
		}
	}

	result, err := s.Scraper.Scrape(r.Context(), args.URL)
	if err != nil {
		code := preview.CodeOf(err)
		if code == preview.CodeInternal {
			s.Logger.Error("Link preview failed", zap.String("url", args.URL), zap.Error(err))
			writeCallableError(w, code, "internal error")
			return
		}
		message := err.Error()
		var pe *preview.Error
		if errors.As(err, &pe) {
			message = pe.Message
		}
		writeCallableError(w, code, message)
		return
	}
	writeCallable(w, http.StatusOK, callableResponse{Result: result})
}
