package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/homewellness-booking/internal/booking"
	"github.com/wolfman30/homewellness-booking/pkg/logging"
)

const (
	msgFilterRequired  = "Please select a treatment category or service to see availability."
	msgAvailabilityErr = "We could not load availability right now. Please try again."
	msgNotConfigured   = "Online booking is not configured."
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

// writeBookingError maps the booking error taxonomy onto HTTP. A filter
// requirement is guidance, not a failure, so it answers 200.
func writeBookingError(w http.ResponseWriter, logger *logging.Logger, op string, err error) {
	var (
		slotErr      *booking.SlotUnavailableError
		admissionErr *booking.AdmissionError
		providerErr  *booking.ProviderError
	)
	switch {
	case errors.Is(err, booking.ErrFilterRequired):
		writeJSON(w, http.StatusOK, map[string]any{
			"success":        false,
			"filterRequired": true,
			"message":        msgFilterRequired,
		})
	case errors.Is(err, booking.ErrSuperseded):
		writeJSON(w, http.StatusConflict, map[string]any{
			"success":    false,
			"superseded": true,
			"message":    "a newer availability request replaced this one",
		})
	case errors.Is(err, booking.ErrNotConfigured):
		logger.Error(op+": provider not configured", "error", err)
		jsonError(w, msgNotConfigured, http.StatusServiceUnavailable)
	case errors.As(err, &slotErr):
		writeJSON(w, http.StatusConflict, map[string]any{
			"success":        false,
			"refresh":        true,
			"bookableItemId": slotErr.BookableItemID,
			"message":        slotErr.Reason,
		})
	case errors.Is(err, booking.ErrInvalidAdmission) && errors.As(err, &admissionErr):
		jsonError(w, admissionErr.Reason, http.StatusBadRequest)
	case errors.As(err, &admissionErr):
		logger.Warn(op+": admission failed", "reason", admissionErr.Reason, "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"success": false,
			"refresh": true,
			"message": admissionErr.Reason,
		})
	case errors.As(err, &providerErr):
		logger.Error(op+": provider request failed", "status", providerErr.StatusCode, "error", err)
		jsonError(w, msgAvailabilityErr, http.StatusBadGateway)
	case errors.Is(err, context.Canceled):
		// client went away
		logger.Debug(op+": request cancelled", "error", err)
	default:
		logger.Error(op+": unexpected error", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
