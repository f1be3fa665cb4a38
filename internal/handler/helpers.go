package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/socialnet/internal/logger"
	"github.com/socialnet/internal/repository"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("writeJSON encode: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeRepoError maps repository sentinels to HTTP statuses. Both "does not
// exist" and "not yours to see" answer 404, so a prober cannot distinguish a
// missing conversation from someone else's.
func writeRepoError(w http.ResponseWriter, err error, notFoundMsg, fallbackMsg string) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrPermission):
		writeError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, repository.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Errorf("%s: %v", fallbackMsg, err)
		writeError(w, http.StatusInternalServerError, fallbackMsg)
	}
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}
