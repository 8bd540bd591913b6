package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/TWRT/task-manager/internal/api/auth"
	"github.com/TWRT/task-manager/internal/lifecycle"
	"github.com/TWRT/task-manager/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]string{
		"error":   kind,
		"message": message,
	})
}

// writeError maps lifecycle error kinds to status codes. Anything else is an
// internal failure and is logged rather than echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := lifecycle.KindOf(err)
	var status int
	switch kind {
	case lifecycle.KindNotFound, lifecycle.KindStageNotFound:
		status = http.StatusNotFound
	case lifecycle.KindForbidden:
		status = http.StatusForbidden
	case lifecycle.KindValidation, lifecycle.KindInvalidReference, lifecycle.KindInvalidState:
		status = http.StatusBadRequest
	case lifecycle.KindConflict:
		status = http.StatusConflict
	default:
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeMessage(w, http.StatusInternalServerError, "internal", "server error")
		return
	}
	writeMessage(w, status, string(kind), err.Error())
}

const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, string(lifecycle.KindValidation),
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeMessage(w, http.StatusBadRequest, string(lifecycle.KindValidation), "Error trying to read the body: "+err.Error())
		return false
	}
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeMessage(w, http.StatusBadRequest, string(lifecycle.KindValidation), "JSON error: "+err.Error())
		return false
	}
	return true
}

func actorFrom(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "unauthorized", "not authorized, no token")
	}
	return id, ok
}
