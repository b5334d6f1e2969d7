package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicbook/clinicbook-go/internal/api"
	"github.com/clinicbook/clinicbook-go/internal/nav"
	"github.com/clinicbook/clinicbook-go/internal/session"
)

// fakeBackend is a minimal stand-in for the clinic backend.
type fakeBackend struct {
	calls       atomic.Int64
	bookStatus  int
	bookPayload map[string]any
}

func (b *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login/", func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"token": "tok_1", "user_id": 7, "email": "jane@example.com"})
	})
	mux.HandleFunc("GET /doctors/", func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		_ = json.NewEncoder(w).Encode([]map[string]any{{"id": 3, "name": "Dr. Alice Williams", "specialty": "Cardiology"}})
	})
	mux.HandleFunc("GET /doctors/3/", func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 3, "name": "Dr. Alice Williams", "specialty": "Cardiology"})
	})
	mux.HandleFunc("GET /schedules/", func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		if r.URL.Query().Get("doctor_id") != "3" {
			t.Errorf("unexpected doctor_id %q", r.URL.Query().Get("doctor_id"))
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": 101, "doctor": 3, "date": "2025-10-20", "start_time": "09:00:00", "is_available": true},
			{"id": 103, "doctor": 3, "date": "2025-10-20", "start_time": "11:00:00", "is_available": true},
			{"id": 102, "doctor": 3, "date": "2025-10-21", "start_time": "10:00:00", "is_available": true},
		})
	})
	mux.HandleFunc("POST /appointments/", func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		if got := r.Header.Get("Authorization"); got != "Token tok_1" {
			t.Errorf("Authorization = %q, want Token tok_1", got)
		}
		status := b.bookStatus
		if status == 0 {
			status = http.StatusCreated
		}
		payload := b.bookPayload
		if payload == nil {
			payload = map[string]any{"id": 500, "schedule": 101, "status": "booked"}
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
	})
	return mux
}

func newKiosk(t *testing.T, backend *fakeBackend) (http.Handler, *session.Store) {
	ts := httptest.NewServer(backend.handler(t))
	t.Cleanup(ts.Close)

	sessions, err := session.NewStore(session.NewMemStore(), nil)
	require.NoError(t, err)

	gateway := api.NewClient(ts.URL, sessions, nil)
	guard := nav.NewGuard(sessions)
	navigator := nav.NewNavigator(guard, nil, nav.DefaultRoutes()...)
	handler := NewHandler(sessions, gateway, navigator, 5*time.Second, nil, nil)

	return New(&Config{Handler: handler, Guard: guard}), sessions
}

func TestProtectedRouteWithoutToken(t *testing.T) {
	backend := &fakeBackend{}
	router, _ := newKiosk(t, backend)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/doctors", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, backend.calls.Load(), "guard must decide before any gateway call")
}

func TestProtectedRouteRedirectsBrowsers(t *testing.T) {
	router, _ := newKiosk(t, &fakeBackend{})

	req := httptest.NewRequest(http.MethodGet, "/doctors", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLoginThenBrowse(t *testing.T) {
	router, sessions := newKiosk(t, &fakeBackend{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"jane@example.com","password":"pw"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, sessions.IsLoggedIn())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/doctors", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Dr. Alice Williams")
}

func TestDoctorDetailGroupsSchedule(t *testing.T) {
	router, sessions := newKiosk(t, &fakeBackend{})
	require.NoError(t, sessions.SetToken("tok_1"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/doctors/3", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Schedule []struct {
			Date  string `json:"date"`
			Slots []struct {
				ID int `json:"id"`
			} `json:"slots"`
		} `json:"schedule"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Schedule, 2)
	assert.Equal(t, "2025-10-20", resp.Schedule[0].Date)
	require.Len(t, resp.Schedule[0].Slots, 2)
	assert.Equal(t, 101, resp.Schedule[0].Slots[0].ID)
	assert.Equal(t, 103, resp.Schedule[0].Slots[1].ID)
	assert.Equal(t, "2025-10-21", resp.Schedule[1].Date)
}

func TestBookAndConfirm(t *testing.T) {
	router, sessions := newKiosk(t, &fakeBackend{})
	require.NoError(t, sessions.SetToken("tok_1"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/doctors/3/book", strings.NewReader(`{"slot_id":101}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var conf struct {
		AppointmentID int    `json:"appointment_id"`
		DoctorName    string `json:"doctor_name"`
		Date          string `json:"schedule_date"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conf))
	assert.Equal(t, 500, conf.AppointmentID)
	assert.Equal(t, "Dr. Alice Williams", conf.DoctorName)
	assert.Equal(t, "2025-10-20", conf.Date)

	// The confirmation view consumes the handed-off payload...
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/booking/confirmation", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Dr. Alice Williams")
	assert.Contains(t, rec.Body.String(), "Cardiology")

	// ...exactly once; a direct revisit renders the empty state.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/booking/confirmation", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No booking details available.")
}

func TestBookConflictPassesThrough(t *testing.T) {
	backend := &fakeBackend{
		bookStatus:  http.StatusConflict,
		bookPayload: map[string]any{"error": "This schedule is not available."},
	}
	router, sessions := newKiosk(t, backend)
	require.NoError(t, sessions.SetToken("tok_1"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/doctors/3/book", strings.NewReader(`{"slot_id":101}`)))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "This schedule is not available.")
}

func TestBookUnknownSlotRejectedLocally(t *testing.T) {
	backend := &fakeBackend{}
	router, sessions := newKiosk(t, backend)
	require.NoError(t, sessions.SetToken("tok_1"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/doctors/3/book", strings.NewReader(`{"slot_id":999}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	// Doctor and schedule fetches happen, but no appointment create.
	assert.Equal(t, int64(2), backend.calls.Load())
}
