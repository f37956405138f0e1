package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/identity"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// AttendanceHandler handles attendance query and export endpoints.
type AttendanceHandler struct {
	ledger   *ledger.Ledger
	location *time.Location
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(l *ledger.Ledger, location *time.Location) *AttendanceHandler {
	if location == nil {
		location = time.Local
	}
	return &AttendanceHandler{
		ledger:   l,
		location: location,
	}
}

// dayParam resolves the optional ?date= query parameter, defaulting to today
// in the ledger time zone. Returns an empty string for malformed dates.
func (h *AttendanceHandler) dayParam(r *http.Request) string {
	date := r.URL.Query().Get("date")
	if date == "" {
		return time.Now().In(h.location).Format(store.DayFormat)
	}
	if _, err := time.Parse(store.DayFormat, date); err != nil {
		return ""
	}
	return date
}

// ListDay returns all attendance records for a day, first seen first.
func (h *AttendanceHandler) ListDay(w http.ResponseWriter, r *http.Request) {
	day := h.dayParam(r)
	if day == "" {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	records, err := h.ledger.List(r.Context(), day)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}
	if records == nil {
		records = []store.Record{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"date":    day,
		"count":   len(records),
		"records": records,
	})
}

// Query looks up one identity's attendance for a day. The lookup is
// diacritic-insensitive so "Tomáš" and "Tomas" resolve to the same person.
func (h *AttendanceHandler) Query(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "identity")
	if name == "" {
		respondError(w, http.StatusBadRequest, "identity is required")
		return
	}
	day := h.dayParam(r)
	if day == "" {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	// Exact match first, then a normalized scan over the day.
	record, err := h.ledger.QueryDay(r.Context(), name, day)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to query attendance")
		return
	}
	if record == nil {
		records, err := h.ledger.List(r.Context(), day)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to query attendance")
			return
		}
		for i := range records {
			if identity.Equal(records[i].Identity, name) {
				record = &records[i]
				break
			}
		}
	}

	if record == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"identity": name,
			"date":     day,
			"present":  false,
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"identity": record.Identity,
		"date":     day,
		"present":  true,
		"record":   record,
	})
}

// Export streams a day's attendance as CSV (Name, Date, Time), the layout
// sign-in sheets and spreadsheet imports expect.
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	day := h.dayParam(r)
	if day == "" {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	records, err := h.ledger.List(r.Context(), day)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "attendance-"+day+".csv"))
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	cw.Write([]string{"Name", "Date", "Time"})
	for _, rec := range records {
		first := rec.FirstSeen.In(h.location)
		cw.Write([]string{rec.Identity, rec.Day, first.Format("15:04:05")})
	}
	cw.Flush()
}
