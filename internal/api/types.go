package api

// Doctor is an immutable snapshot of a doctor as served by the backend.
type Doctor struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	Department string `json:"department,omitempty"`
}

// Slot is one bookable schedule entry. Availability is authoritative only as
// of fetch time; the server is the final arbiter at booking time.
type Slot struct {
	ID          int    `json:"id"`
	DoctorID    int    `json:"doctor"`
	Date        string `json:"date"`       // "2006-01-02"
	StartTime   string `json:"start_time"` // "15:04:05"
	EndTime     string `json:"end_time,omitempty"`
	IsAvailable bool   `json:"is_available"`
}

// Appointment is created server-side and held only transiently by the client.
type Appointment struct {
	ID         int    `json:"id"`
	ScheduleID int    `json:"schedule"`
	Status     string `json:"status"`
}

// RegisterRequest carries a new patient registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Birthday string `json:"birthday,omitempty"` // "2006-01-02"
}

// Profile is the authenticated patient's profile.
type Profile struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Birthday string `json:"birthday,omitempty"`
}

// ProfileUpdate is a partial profile update.
type ProfileUpdate struct {
	Username string `json:"username,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Birthday string `json:"birthday,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the token grant returned by the backend.
type LoginResponse struct {
	Token  string `json:"token"`
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
}

type createAppointmentRequest struct {
	Schedule int `json:"schedule"`
}
