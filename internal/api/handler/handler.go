// Package handler holds the HTTP handlers of the planning API. Each
// constructor takes the narrow service interface it needs and returns an
// http.HandlerFunc.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	mw "github.com/kiranshivaraju/shopplan/internal/api/middleware"
	"github.com/kiranshivaraju/shopplan/internal/api/response"
	"github.com/kiranshivaraju/shopplan/internal/planning"
	"github.com/kiranshivaraju/shopplan/internal/scheduler"
	"github.com/kiranshivaraju/shopplan/internal/store"
)

const maxBodyBytes = 1 << 20

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate reads a JSON body into dst and validates it. On failure
// it writes the 400 response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		response.ValidationError(w, "Invalid request body", nil)
		return false
	}
	if err := v.Struct(dst); err != nil {
		response.ValidationError(w, "Validation failed", formatValidationErrors(err))
		return false
	}
	return true
}

// formatValidationErrors maps each failing field to the tag it failed.
func formatValidationErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, e := range verrs {
		out[e.Field()] = e.Tag()
	}
	return out
}

// writeServiceError maps service and engine errors onto HTTP responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, scheduler.ErrAssignmentNotFound):
		response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, scheduler.ErrUnknownMachine):
		response.Error(w, http.StatusNotFound, "MACHINE_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, scheduler.ErrInvalidEdit):
		response.ValidationError(w, err.Error(), nil)
	case errors.Is(err, planning.ErrPlanningInProgress):
		response.Error(w, http.StatusConflict, "PLANNING_IN_PROGRESS",
			"A planning run or replan is in progress, retry shortly", nil)
	case errors.Is(err, scheduler.ErrSlotConflict):
		response.Error(w, http.StatusConflict, "SLOT_CONFLICT", err.Error(), nil)
	case errors.Is(err, scheduler.ErrInvalidTransition), errors.Is(err, store.ErrInvalidTransition):
		response.Error(w, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	case errors.Is(err, store.ErrDuplicateKey):
		response.Error(w, http.StatusConflict, "CONFLICT", "Resource already exists", nil)
	default:
		keyID, _ := mw.GetKeyID(r)
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"key_id", keyID,
			"error", err,
		)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
