package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ziadkadry99/pdfchat/internal/apperr"
)

// apiResponse is the envelope every API response shares.
type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorStatus maps a failure kind onto an HTTP status and a message that is
// safe to show the user.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, apperr.ErrNoCredential):
		return http.StatusBadRequest, "Please add and activate an API key"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, apperr.ErrExtraction):
		return http.StatusUnprocessableEntity, "Could not extract text from PDF"
	case errors.Is(err, apperr.ErrIndexBuild):
		return http.StatusInternalServerError, "Error processing PDF"
	case errors.Is(err, apperr.ErrBusy):
		return http.StatusTooManyRequests, "Your previous message is still being answered. Please wait and try again."
	case errors.Is(err, apperr.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests. Please wait a moment and try again."
	case errors.Is(err, apperr.ErrModelTimeout):
		return http.StatusGatewayTimeout, "The language model took too long to answer. Please try again."
	case errors.Is(err, apperr.ErrModelInvocation):
		return http.StatusBadGateway, "The language model could not answer. Please try again."
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("user_id", userID(r)),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeJSON(w, status, apiResponse{Success: false, Message: msg})
}

// decodeJSON reads a JSON body into v; malformed input is a bad request.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body", apperr.ErrBadRequest)
	}
	return nil
}
