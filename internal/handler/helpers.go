package handler

import (
	"encoding/json"
	"net/http"

	"github.com/chatter/internal/logger"
	"github.com/go-playground/validator/v10"
)

// validate проверяет теги `validate` у request-структур; любое нарушение
// отдаётся клиенту как 400 "Invalid request body".
var validate = validator.New(validator.WithRequiredStructEnabled())

const errInvalidBody = "Invalid request body"

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
