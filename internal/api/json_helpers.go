package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"radiowave/internal/storage"
)

// RequestError is the JSON error shape returned by middleware and handlers.
type RequestError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e RequestError) Error() string { return e.Message }

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// WriteError is an exported helper for returning JSON API errors.
func WriteError(w http.ResponseWriter, status int, err error) {
	writeError(w, status, err)
}

// writeStorageError maps the typed storage error kinds onto HTTP statuses.
func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case storage.IsNotFound(err):
		writeError(w, http.StatusNotFound, err)
	case storage.IsConflict(err), storage.IsLimitExceeded(err):
		writeError(w, http.StatusConflict, err)
	case storage.IsValidation(err):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, http.StatusMethodNotAllowed, RequestError{
		Status:  http.StatusMethodNotAllowed,
		Message: "method " + r.Method + " not allowed",
	})
}
