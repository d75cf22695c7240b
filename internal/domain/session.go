package domain

import "time"

// SessionStatus refleja los valores 1/2 persistidos en la tabla sessions.
type SessionStatus int16

const (
	SessionActive    SessionStatus = 1
	SessionCompleted SessionStatus = 2
)

func (s SessionStatus) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// MaxSessionMinutes es el tope de duracion persistida: 8 horas.
const MaxSessionMinutes = 480

// Session es un registro de asistencia diaria de un usuario.
// SessionEnd queda en nil y Duration en 0 mientras la sesion sigue activa.
type Session struct {
	ID           int64         `json:"id"`
	UserID       int64         `json:"user_id"`
	Status       SessionStatus `json:"status"`
	SessionStart time.Time     `json:"session_start"`
	SessionEnd   *time.Time    `json:"session_end,omitempty"`
	Duration     int           `json:"duration"`
	Timezone     string        `json:"timezone"`
	CreatedAt    time.Time     `json:"created_at"`
}
