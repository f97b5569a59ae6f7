package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"workhours/models"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var validate = validator.New()

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body", models.ErrValidation)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// respondError converts business-rule errors into user-facing JSON payloads.
// Only storage failures surface as a hard 503; anything unclassified is a 500.
func respondError(w http.ResponseWriter, err error) {
	var capacityErr *models.CapacityExceededError
	switch {
	case errors.As(err, &capacityErr):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":      capacityErr.Error(),
			"free_hours": capacityErr.Free.StringFixed(2),
		})
	case errors.Is(err, models.ErrInvalidEmployeeFormat),
		errors.Is(err, models.ErrValidation):
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, models.ErrEmployeeNotFound),
		errors.Is(err, models.ErrNotFound):
		respondJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, models.ErrDuplicateKey):
		respondJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, models.ErrStorageUnavailable):
		logrus.WithError(err).Error("storage failure")
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "service unavailable"})
	default:
		logrus.WithError(err).Error("unhandled error")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
