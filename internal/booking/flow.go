// Package booking drives a single booking attempt from slot selection to a
// confirmed or failed reservation.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/clinicbook/clinicbook-go/internal/api"
	"github.com/clinicbook/clinicbook-go/internal/observability/metrics"
	"github.com/clinicbook/clinicbook-go/internal/schedule"
	"github.com/clinicbook/clinicbook-go/pkg/logging"
)

const defaultSubmitTimeout = 10 * time.Second

// State of the booking flow.
type State int

const (
	StateNoSelection State = iota
	StateSelected
	StateBooking
	StateConfirmed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNoSelection:
		return "no_selection"
	case StateSelected:
		return "selected"
	case StateBooking:
		return "booking"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ValidationError is a transition rejected locally, before any backend call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "booking: " + e.Reason }

// ErrFlowAbandoned is returned when a response arrives after Teardown; the
// result is discarded rather than applied to a view the user has left.
var ErrFlowAbandoned = errors.New("booking: flow abandoned")

// Failure reasons surfaced in the Failed state.
const (
	ReasonConflict     = "conflict"
	ReasonTimeout      = "timeout"
	ReasonUnauthorized = "unauthorized"
)

// Confirmation is the payload handed to the confirmation view. It is
// assembled client-side from the held doctor and slot plus the server's
// appointment id; nothing is re-fetched.
type Confirmation struct {
	AppointmentID   int    `json:"appointment_id"`
	DoctorName      string `json:"doctor_name"`
	DoctorSpecialty string `json:"doctor_specialty"`
	Date            string `json:"schedule_date"`
	StartTime       string `json:"schedule_start_time"`
	Status          string `json:"status"`
}

// Outcome is the tagged result of one booking attempt.
type Outcome struct {
	State        State
	Confirmation *Confirmation // set when State == StateConfirmed
	Reason       string        // set when State == StateFailed
}

// AppointmentCreator is the single gateway operation Submit depends on.
type AppointmentCreator interface {
	CreateAppointment(ctx context.Context, scheduleID int) (*api.Appointment, error)
}

// Flow is one booking attempt for one doctor. It tracks at most one selected
// slot and serializes Submit: a second Submit while one is outstanding is
// rejected, not queued.
type Flow struct {
	gateway AppointmentCreator
	doctor  api.Doctor
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.BookingMetrics

	mu           sync.Mutex
	state        State
	schedule     *schedule.Grouped
	selectedID   int
	failReason   string
	confirmation *Confirmation
	active       bool
}

// FlowOption customizes a Flow.
type FlowOption func(*Flow)

// WithSubmitTimeout bounds a single Submit call.
func WithSubmitTimeout(d time.Duration) FlowOption {
	return func(f *Flow) { f.timeout = d }
}

// WithMetrics attaches outcome metrics. Nil metrics are a no-op.
func WithMetrics(m *metrics.BookingMetrics) FlowOption {
	return func(f *Flow) { f.metrics = m }
}

// NewFlow creates a flow for booking one of doctor's slots.
func NewFlow(gateway AppointmentCreator, doctor api.Doctor, logger *logging.Logger, opts ...FlowOption) *Flow {
	if logger == nil {
		logger = logging.Default()
	}
	f := &Flow{
		gateway:  gateway,
		doctor:   doctor,
		timeout:  defaultSubmitTimeout,
		logger:   logger,
		state:    StateNoSelection,
		schedule: schedule.Group(nil),
		active:   true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetSchedule replaces the schedule the selection is validated against. A
// selection referencing a slot no longer present is cleared.
func (f *Flow) SetSchedule(g *schedule.Grouped) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schedule = g
	if f.state == StateSelected {
		if _, ok := g.Slot(f.selectedID); !ok {
			f.selectedID = 0
			f.state = StateNoSelection
		}
	}
}

// State returns the current flow state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SelectedSlot returns the currently selected slot, if any.
func (f *Flow) SelectedSlot() (api.Slot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selectedID == 0 {
		return api.Slot{}, false
	}
	return f.schedule.Slot(f.selectedID)
}

// Select chooses a slot. The slot must exist in the current schedule and be
// available; otherwise the transition is rejected and state is unchanged.
// Selecting a new slot replaces any prior selection; selecting from a
// terminal state starts a fresh attempt.
func (f *Flow) Select(slotID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateBooking {
		return &ValidationError{Reason: "a reservation is in flight"}
	}
	slot, ok := f.schedule.Slot(slotID)
	if !ok {
		return &ValidationError{Reason: fmt.Sprintf("slot %d is not in the current schedule", slotID)}
	}
	if !slot.IsAvailable {
		return &ValidationError{Reason: fmt.Sprintf("slot %d is not available", slotID)}
	}

	f.selectedID = slotID
	f.state = StateSelected
	f.failReason = ""
	f.confirmation = nil
	return nil
}

// ClearSelection returns the flow to NoSelection. Valid from Selected and
// terminal states; a no-op when nothing is selected.
func (f *Flow) ClearSelection() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateBooking {
		return
	}
	f.selectedID = 0
	f.failReason = ""
	f.confirmation = nil
	f.state = StateNoSelection
}

// Submit reserves the selected slot. Valid only from Selected; while the
// reservation is outstanding further Submits are rejected, so repeated
// clicks cannot double-book. On success the flow moves to Confirmed and the
// selection is cleared; on failure it moves to Failed and stays there until
// ClearSelection, a new Select, or an explicit Retry.
func (f *Flow) Submit(ctx context.Context) (*Confirmation, error) {
	f.mu.Lock()
	if f.state == StateBooking {
		f.mu.Unlock()
		return nil, &ValidationError{Reason: "a reservation is already in flight"}
	}
	if f.state != StateSelected {
		f.mu.Unlock()
		return nil, &ValidationError{Reason: "no slot selected"}
	}
	slot, ok := f.schedule.Slot(f.selectedID)
	if !ok {
		// Selection invariant: only slots in the held schedule are
		// selectable, so this means the schedule changed underneath us.
		f.selectedID = 0
		f.state = StateNoSelection
		f.mu.Unlock()
		return nil, &ValidationError{Reason: "selected slot is no longer in the schedule"}
	}
	f.state = StateBooking
	f.mu.Unlock()

	subCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	appt, err := f.gateway.CreateAppointment(subCtx, slot.ID)

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.active {
		// The user left the booking view while the request was in
		// flight. Discard the late response.
		f.logger.Debug("discarding late booking response", "slot_id", slot.ID)
		return nil, ErrFlowAbandoned
	}

	if err != nil {
		f.failReason = failureReason(err)
		f.state = StateFailed
		f.metrics.ObserveOutcome(f.failReason)
		f.logger.Warn("booking failed", "slot_id", slot.ID, "reason", f.failReason, "error", err)
		return nil, err
	}

	f.confirmation = &Confirmation{
		AppointmentID:   appt.ID,
		DoctorName:      f.doctor.Name,
		DoctorSpecialty: f.doctor.Specialty,
		Date:            slot.Date,
		StartTime:       slot.StartTime,
		Status:          appt.Status,
	}
	f.selectedID = 0
	f.state = StateConfirmed
	f.metrics.ObserveOutcome("confirmed")
	f.logger.Info("booking confirmed", "appointment_id", appt.ID, "slot_id", slot.ID)
	return f.confirmation, nil
}

// Retry re-arms the selection after a failure. The failed slot must still be
// present and available in the held schedule. Selection is never re-armed
// implicitly; this is the caller's explicit decision.
func (f *Flow) Retry() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateFailed {
		return &ValidationError{Reason: "nothing to retry"}
	}
	slot, ok := f.schedule.Slot(f.selectedID)
	if !ok || !slot.IsAvailable {
		return &ValidationError{Reason: "failed slot is no longer available"}
	}
	f.failReason = ""
	f.state = StateSelected
	return nil
}

// Outcome returns a snapshot of the current attempt's result.
func (f *Flow) Outcome() Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := Outcome{State: f.state}
	switch f.state {
	case StateConfirmed:
		out.Confirmation = f.confirmation
	case StateFailed:
		out.Reason = f.failReason
	}
	return out
}

// Teardown abandons the flow. In-flight responses arriving afterwards are
// discarded. Navigation away from the booking view calls this; nothing about
// the selection survives it.
func (f *Flow) Teardown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
	f.selectedID = 0
	f.state = StateNoSelection
}

func failureReason(err error) string {
	switch {
	case api.IsConflict(err):
		return ReasonConflict
	case api.IsAuthorization(err):
		return ReasonUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	}
	var re *api.RequestError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return err.Error()
}
