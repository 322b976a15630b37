package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/slotwise/booking-engine/internal/refund"
	redisclient "github.com/slotwise/booking-engine/internal/redis"
	"github.com/slotwise/booking-engine/internal/schedule"
	"github.com/slotwise/booking-engine/internal/scheduler"
	"github.com/slotwise/booking-engine/internal/waitlist"
)

func generateSlotsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GenerateSlotsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if err := req.Config.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_config", err.Error())
			return
		}

		events := make([]schedule.ExistingEvent, 0, len(req.ExistingEvents))
		for _, ev := range req.ExistingEvents {
			events = append(events, schedule.ExistingEvent{
				StartTime: ev.StartTime,
				EndTime:   ev.EndTime,
			})
		}

		slots, err := schedule.GenerateSlots(req.Date, req.Config, events, time.Now())
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}

		if slots == nil {
			slots = []schedule.TimeSlot{}
		}
		writeJSON(w, http.StatusOK, GenerateSlotsResponse{Date: req.Date, Slots: slots})
	}
}

func visitorRefundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VisitorRefundRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if req.PaidAmountCents < 0 {
			writeError(w, http.StatusBadRequest, "invalid_amount", "paid_amount_cents must be non-negative")
			return
		}
		if err := req.Config.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_config", err.Error())
			return
		}

		result := refund.CalculateVisitorRefund(req.PaidAmountCents, req.EventStartTime, req.Config, time.Now())
		writeJSON(w, http.StatusOK, result)
	}
}

func tenantRefundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TenantRefundRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if req.PaidAmountCents < 0 {
			writeError(w, http.StatusBadRequest, "invalid_amount", "paid_amount_cents must be non-negative")
			return
		}

		writeJSON(w, http.StatusOK, refund.CalculateTenantRefund(req.PaidAmountCents))
	}
}

func joinWaitlistHandler(svc *waitlist.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinWaitlistRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		tenantID, err := uuid.Parse(req.TenantID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_tenant_id", "tenant_id must be a valid UUID")
			return
		}
		if req.ScopeKey == "" || req.VisitorEmail == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "scope_key and visitor_email are required")
			return
		}

		entry, err := svc.Join(r.Context(), tenantID, req.ScopeKey, req.VisitorEmail, req.VisitorName)
		if err != nil {
			handleWaitlistError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toEntryResponse(entry))
	}
}

func confirmBookingHandler(svc *waitlist.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := chi.URLParam(r, "id")
		id, err := uuid.Parse(idStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_entry_id", "id must be a valid UUID")
			return
		}

		entry, err := svc.ConfirmBooking(r.Context(), id)
		if err != nil {
			handleWaitlistError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toEntryResponse(entry))
	}
}

func capacityFreedHandler(orch *scheduler.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CapacityFreedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		tenantID, err := uuid.Parse(req.TenantID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_tenant_id", "tenant_id must be a valid UUID")
			return
		}
		if req.ScopeKey == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "scope_key is required")
			return
		}

		if err := orch.OnCapacityFreed(r.Context(), tenantID, req.ScopeKey); err != nil {
			handleWaitlistError(w, err)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

func handleWaitlistError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, waitlist.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, "entry_not_found", err.Error())
	case errors.Is(err, waitlist.ErrDuplicateEntry):
		writeError(w, http.StatusConflict, "already_on_waitlist", err.Error())
	case errors.Is(err, waitlist.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, waitlist.ErrScopeBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "scope_busy", "scope is busy, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func toEntryResponse(e *waitlist.Entry) WaitlistEntryResponse {
	return WaitlistEntryResponse{
		ID:           e.ID,
		TenantID:     e.TenantID,
		ScopeKey:     e.ScopeKey,
		VisitorEmail: e.VisitorEmail,
		VisitorName:  e.VisitorName,
		Position:     e.Position,
		Status:       string(e.Status),
		NotifiedAt:   e.NotifiedAt,
		ExpiresAt:    e.ExpiresAt,
		BookedAt:     e.BookedAt,
		CreatedAt:    e.CreatedAt,
	}
}
