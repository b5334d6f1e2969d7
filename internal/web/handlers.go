// Package web is the kiosk-mode HTTP facade over the booking core: the same
// session, gateway, and flow wiring the CLI uses, exposed as JSON endpoints
// for a terminal in a clinic lobby.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clinicbook/clinicbook-go/internal/api"
	"github.com/clinicbook/clinicbook-go/internal/booking"
	"github.com/clinicbook/clinicbook-go/internal/confirm"
	"github.com/clinicbook/clinicbook-go/internal/nav"
	"github.com/clinicbook/clinicbook-go/internal/observability/metrics"
	"github.com/clinicbook/clinicbook-go/internal/schedule"
	"github.com/clinicbook/clinicbook-go/internal/session"
	"github.com/clinicbook/clinicbook-go/pkg/logging"
)

// Handler serves the kiosk endpoints.
type Handler struct {
	sessions       *session.Store
	gateway        *api.Client
	nav            *nav.Navigator
	logger         *logging.Logger
	bookingTimeout time.Duration
	bookingMetrics *metrics.BookingMetrics
}

// NewHandler wires the kiosk facade. bookingMetrics may be nil.
func NewHandler(sessions *session.Store, gateway *api.Client, navigator *nav.Navigator, bookingTimeout time.Duration, bookingMetrics *metrics.BookingMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		sessions:       sessions,
		gateway:        gateway,
		nav:            navigator,
		logger:         logger,
		bookingTimeout: bookingTimeout,
		bookingMetrics: bookingMetrics,
	}
}

// Health is the liveness endpoint.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Login exchanges credentials for a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.gateway.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeGatewayError(w, err)
		return
	}
	if err := h.sessions.SetToken(res.Token); err != nil {
		h.logger.Error("failed to persist session", "error", err)
		writeError(w, http.StatusInternalServerError, "could not persist session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": res.UserID, "email": res.Email})
}

// Logout clears the session.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	if err := h.sessions.Clear(); err != nil {
		h.logger.Error("failed to clear session", "error", err)
		writeError(w, http.StatusInternalServerError, "could not clear session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Register creates a patient account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	profile, err := h.gateway.Register(r.Context(), req)
	if err != nil {
		h.writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

// Doctors lists doctors.
func (h *Handler) Doctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.gateway.Doctors(r.Context())
	if err != nil {
		h.writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doctors)
}

type dateBucket struct {
	Date  string     `json:"date"`
	Slots []api.Slot `json:"slots"`
}

type doctorDetailResponse struct {
	Doctor   *api.Doctor  `json:"doctor"`
	Schedule []dateBucket `json:"schedule"`
}

// DoctorDetail returns a doctor with the date-grouped slot picker data.
// An optional ?date= scopes the fetch server-side.
func (h *Handler) DoctorDetail(w http.ResponseWriter, r *http.Request) {
	doctorID, err := strconv.Atoi(chi.URLParam(r, "doctorID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid doctor id")
		return
	}

	doctor, err := h.gateway.Doctor(r.Context(), doctorID)
	if err != nil {
		h.writeGatewayError(w, err)
		return
	}

	agg := schedule.NewAggregator(h.gateway, h.logger)
	grouped, err := agg.Load(r.Context(), doctorID, r.URL.Query().Get("date"))
	if err != nil {
		h.writeGatewayError(w, err)
		return
	}

	resp := doctorDetailResponse{Doctor: doctor, Schedule: []dateBucket{}}
	for _, date := range grouped.Dates() {
		resp.Schedule = append(resp.Schedule, dateBucket{Date: date, Slots: grouped.SlotsOn(date)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Book runs one booking attempt: fetch the doctor's current schedule, select
// the requested slot, submit, and hand the confirmation payload to the
// confirmation view via navigation state.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	doctorID, err := strconv.Atoi(chi.URLParam(r, "doctorID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid doctor id")
		return
	}
	var req struct {
		SlotID int `json:"slot_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doctor, err := h.gateway.Doctor(r.Context(), doctorID)
	if err != nil {
		h.writeGatewayError(w, err)
		return
	}

	agg := schedule.NewAggregator(h.gateway, h.logger)
	grouped, err := agg.Load(r.Context(), doctorID, "")
	if err != nil {
		h.writeGatewayError(w, err)
		return
	}

	flow := booking.NewFlow(h.gateway, *doctor, h.logger,
		booking.WithSubmitTimeout(h.bookingTimeout),
		booking.WithMetrics(h.bookingMetrics),
	)
	flow.SetSchedule(grouped)

	if err := flow.Select(req.SlotID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	conf, err := flow.Submit(r.Context())
	if err != nil {
		var ve *booking.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		h.writeGatewayError(w, err)
		return
	}

	if _, err := h.nav.Go(nav.RouteConfirmation, conf); err != nil {
		h.logger.Error("confirmation handoff failed", "error", err)
	}
	writeJSON(w, http.StatusCreated, conf)
}

// Confirmation renders the payload handed off by the last booking. Reached
// directly, without a preceding booking, it renders the empty state.
func (h *Handler) Confirmation(w http.ResponseWriter, _ *http.Request) {
	payload := confirm.FromState(h.nav.TakeState())
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":     confirm.Render(payload),
		"appointment": payload,
	})
}

// Appointments lists the patient's appointments.
func (h *Handler) Appointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.gateway.Appointments(r.Context())
	if err != nil {
		h.writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

// CancelAppointment cancels one appointment.
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "appointmentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}
	if err := h.gateway.CancelAppointment(r.Context(), id); err != nil {
		h.writeGatewayError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeGatewayError maps a backend failure onto the kiosk response. The
// backend's own status is passed through; transport failures become 502.
func (h *Handler) writeGatewayError(w http.ResponseWriter, err error) {
	var re *api.RequestError
	if errors.As(err, &re) && re.StatusCode > 0 {
		writeError(w, re.StatusCode, re.Message)
		return
	}
	writeError(w, http.StatusBadGateway, "backend unavailable")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
