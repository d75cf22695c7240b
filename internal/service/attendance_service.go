package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"sfa-backend/internal/clock"
	"sfa-backend/internal/domain"
	"sfa-backend/internal/repository"
)

// Mensajes visibles al usuario; el controlador los devuelve tal cual.
const (
	msgContinuingActive = "Continuing existing session"
	msgContinuingReopen = "Continuing today's session"
	msgClockedIn        = "Successfully clocked in"
	msgClockInFailed    = "Failed to clock in. Please try again."
	msgClockedOut       = "Successfully clocked out"
	msgNotClockedIn     = "You are not currently clocked in."
	msgClockOutFailed   = "Failed to clock out. Please try again."
	msgNoActiveSessions = "User has no active sessions to close."
	msgForceCloseFailed = "Failed to close active sessions. Please try again."
)

type ClockInResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID int64  `json:"session_id,omitempty"`
}

type ClockOutResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Duration int    `json:"duration,omitempty"`
}

type StatusResult struct {
	IsClockedIn  bool       `json:"is_clocked_in"`
	SessionID    int64      `json:"session_id,omitempty"`
	SessionStart *time.Time `json:"session_start,omitempty"`
	SessionEnd   *time.Time `json:"session_end,omitempty"`
	Duration     int        `json:"duration,omitempty"`
	Status       string     `json:"status,omitempty"`
	ClockInTime  string     `json:"clock_in_time,omitempty"`
	ClockOutTime string     `json:"clock_out_time,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

type SessionView struct {
	ID            int64  `json:"id"`
	Status        string `json:"status"`
	SessionStart  string `json:"session_start"`
	SessionEnd    string `json:"session_end,omitempty"`
	Duration      int    `json:"duration"`
	DurationLabel string `json:"duration_label"`
	Timezone      string `json:"timezone"`
}

type Statistics struct {
	TotalSessions     int     `json:"total_sessions"`
	ActiveSessions    int     `json:"active_sessions"`
	CompletedSessions int     `json:"completed_sessions"`
	TotalDuration     int     `json:"total_duration"`
	TotalHours        float64 `json:"total_hours"`
	AverageDuration   float64 `json:"average_duration"`
	AverageHours      float64 `json:"average_hours"`
	WorkedDays        int     `json:"worked_days"`
	TotalWorkingDays  int     `json:"total_working_days"`
	AttendanceRatio   string  `json:"attendance_ratio"`
}

type SessionsResult struct {
	Sessions   []SessionView `json:"sessions"`
	Statistics Statistics    `json:"statistics"`
}

type ForceClockOutResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ClosedSessions int    `json:"closed_sessions,omitempty"`
}

// DefaultSessionLimit acota el historial devuelto por UserSessions.
const DefaultSessionLimit = 50

// AttendanceService es el nucleo de asistencia: apertura, continuacion,
// reapertura y cierre (con tope) de la sesion diaria de cada usuario, mas
// el historial con estadisticas. Nunca propaga errores de persistencia al
// caller: toda falla se loguea y degrada a un resultado con Success=false.
type AttendanceService struct {
	logger   *zap.Logger
	sessions repository.SessionRepository
}

func NewAttendanceService(logger *zap.Logger, sessions repository.SessionRepository) *AttendanceService {
	return &AttendanceService{
		logger:   logger,
		sessions: sessions,
	}
}

// ClockIn abre la jornada del usuario. Si hoy ya hay una sesion activa la
// continua sin escribir; si hay una completada de hoy la reabre; si no,
// crea una nueva con el timestamp del cliente.
func (s *AttendanceService) ClockIn(ctx context.Context, userID int64, clientTime string) ClockInResult {
	if s.sessions == nil {
		return ClockInResult{Success: false, Message: msgClockInFailed}
	}

	start, err := clock.ParseClientTime(clientTime)
	if err != nil {
		s.log().Warn("clock in rejected: bad client time", zap.Int64("user_id", userID), zap.String("client_time", clientTime))
		return ClockInResult{Success: false, Message: msgClockInFailed}
	}

	var result ClockInResult
	err = s.sessions.WithUserLock(ctx, userID, func(ctx context.Context, repo repository.SessionRepository) error {
		dayStart, dayEnd := clock.DayBounds(clock.Now())

		active, err := repo.LatestByUserStatusAndDay(ctx, userID, domain.SessionActive, dayStart, dayEnd)
		if err == nil {
			result = ClockInResult{Success: true, Message: msgContinuingActive, SessionID: active.ID}
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		completed, err := repo.LatestByUserStatusAndDay(ctx, userID, domain.SessionCompleted, dayStart, dayEnd)
		if err == nil {
			if err := repo.Reopen(ctx, completed.ID); err != nil {
				return err
			}
			result = ClockInResult{Success: true, Message: msgContinuingReopen, SessionID: completed.ID}
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		id, err := repo.Create(ctx, domain.Session{
			UserID:       userID,
			Status:       domain.SessionActive,
			SessionStart: start,
			Duration:     0,
			Timezone:     clock.ZoneName,
			CreatedAt:    clock.Now().Truncate(time.Second),
		})
		if err != nil {
			return err
		}
		result = ClockInResult{Success: true, Message: msgClockedIn, SessionID: id}
		return nil
	})
	if err != nil {
		s.log().Error("clock in failed", zap.Int64("user_id", userID), zap.Error(err))
		return ClockInResult{Success: false, Message: msgClockInFailed}
	}
	return result
}

// ClockOut cierra la sesion activa de hoy. Una sesion de mas de 8 horas se
// capa a 480 minutos y su fin se fuerza a las 18:00 del dia de inicio, para
// que un clock-out olvidado no infle horas pagadas.
func (s *AttendanceService) ClockOut(ctx context.Context, userID int64, clientTime string) ClockOutResult {
	if s.sessions == nil {
		return ClockOutResult{Success: false, Message: msgClockOutFailed}
	}

	end, err := clock.ParseClientTime(clientTime)
	if err != nil {
		s.log().Warn("clock out rejected: bad client time", zap.Int64("user_id", userID), zap.String("client_time", clientTime))
		return ClockOutResult{Success: false, Message: msgClockOutFailed}
	}

	var result ClockOutResult
	err = s.sessions.WithUserLock(ctx, userID, func(ctx context.Context, repo repository.SessionRepository) error {
		dayStart, dayEnd := clock.DayBounds(clock.Now())

		session, err := repo.LatestByUserStatusAndDay(ctx, userID, domain.SessionActive, dayStart, dayEnd)
		if errors.Is(err, pgx.ErrNoRows) {
			result = ClockOutResult{Success: false, Message: msgNotClockedIn}
			return nil
		}
		if err != nil {
			return err
		}

		duration := clock.MinutesBetween(session.SessionStart, end)
		sessionEnd := end
		if sessionEnd.Before(session.SessionStart) {
			// Un reloj de cliente atrasado no puede dejar el cierre antes
			// del inicio.
			sessionEnd = session.SessionStart
		}
		if duration > domain.MaxSessionMinutes {
			duration = domain.MaxSessionMinutes
			sessionEnd = clock.WorkdayEnd(session.SessionStart)
		}

		if err := repo.Close(ctx, session.ID, sessionEnd, duration); err != nil {
			return err
		}
		result = ClockOutResult{Success: true, Message: msgClockedOut, Duration: duration}
		return nil
	})
	if err != nil {
		s.log().Error("clock out failed", zap.Int64("user_id", userID), zap.Error(err))
		return ClockOutResult{Success: false, Message: msgClockOutFailed}
	}
	return result
}

// CurrentStatus devuelve la sesion activa de hoy con los minutos
// transcurridos en vivo (sin tope; el tope aplica solo al cierre). Cualquier
// falla degrada a "no clocked in".
func (s *AttendanceService) CurrentStatus(ctx context.Context, userID int64) StatusResult {
	if s.sessions == nil {
		return StatusResult{IsClockedIn: false}
	}

	dayStart, dayEnd := clock.DayBounds(clock.Now())
	session, err := s.sessions.LatestByUserStatusAndDay(ctx, userID, domain.SessionActive, dayStart, dayEnd)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.log().Error("current status lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		return StatusResult{IsClockedIn: false}
	}

	elapsed := clock.MinutesBetween(session.SessionStart, clock.Now())
	start := session.SessionStart
	created := session.CreatedAt
	result := StatusResult{
		IsClockedIn:  true,
		SessionID:    session.ID,
		SessionStart: &start,
		SessionEnd:   session.SessionEnd,
		Duration:     elapsed,
		Status:       session.Status.String(),
		ClockInTime:  clock.FormatTimestamp(session.SessionStart),
		CreatedAt:    &created,
	}
	if session.SessionEnd != nil {
		result.ClockOutTime = clock.FormatTimestamp(*session.SessionEnd)
	}
	return result
}

// UserSessions lista el historial del periodo pedido (newest first) junto a
// las estadisticas. El ratio de asistencia es siempre el del mes en curso,
// sin importar el periodo consultado. Cualquier falla devuelve lista vacia
// con estadisticas en cero.
func (s *AttendanceService) UserSessions(ctx context.Context, userID int64, period, startDate, endDate string, limit int) SessionsResult {
	if s.sessions == nil {
		return emptySessionsResult()
	}
	if limit <= 0 {
		limit = DefaultSessionLimit
	}

	today := clock.Today()
	from, to := resolvePeriodRange(period, startDate, endDate, today)

	sessions, err := s.sessions.ListByUserAndRange(ctx, userID, from, to.AddDate(0, 0, 1), limit)
	if err != nil {
		s.log().Error("session history query failed", zap.Int64("user_id", userID), zap.String("period", period), zap.Error(err))
		return emptySessionsResult()
	}

	stats := computeStatistics(sessions)

	monthStart, monthEnd := clock.MonthBounds(clock.Now())
	monthSessions, err := s.sessions.ListByUserAndRange(ctx, userID, monthStart, monthEnd.AddDate(0, 0, 1), 0)
	if err != nil {
		s.log().Error("monthly attendance query failed", zap.Int64("user_id", userID), zap.Error(err))
		return emptySessionsResult()
	}
	stats.WorkedDays, stats.TotalWorkingDays = calculateMonthlyAttendance(monthSessions, monthStart, monthEnd)
	stats.AttendanceRatio = fmt.Sprintf("%d/%d", stats.WorkedDays, stats.TotalWorkingDays)

	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, newSessionView(session))
	}
	return SessionsResult{Sessions: views, Statistics: stats}
}

// ForceClockOut cierra administrativamente todas las sesiones activas del
// usuario, de cualquier dia, cada una capada a las 18:00 de su propio dia de
// inicio.
func (s *AttendanceService) ForceClockOut(ctx context.Context, userID int64) ForceClockOutResult {
	if s.sessions == nil {
		return ForceClockOutResult{Success: false, Message: msgForceCloseFailed}
	}

	var result ForceClockOutResult
	err := s.sessions.WithUserLock(ctx, userID, func(ctx context.Context, repo repository.SessionRepository) error {
		sessions, err := repo.ActiveByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			result = ForceClockOutResult{Success: false, Message: msgNoActiveSessions}
			return nil
		}

		for _, session := range sessions {
			sessionEnd := clock.WorkdayEnd(session.SessionStart)
			duration := clock.MinutesBetween(session.SessionStart, sessionEnd)
			if duration > domain.MaxSessionMinutes {
				duration = domain.MaxSessionMinutes
			}
			if err := repo.Close(ctx, session.ID, sessionEnd, duration); err != nil {
				return err
			}
		}
		result = ForceClockOutResult{
			Success:        true,
			Message:        fmt.Sprintf("Closed %d active session(s).", len(sessions)),
			ClosedSessions: len(sessions),
		}
		return nil
	})
	if err != nil {
		s.log().Error("force clock out failed", zap.Int64("user_id", userID), zap.Error(err))
		return ForceClockOutResult{Success: false, Message: msgForceCloseFailed}
	}
	return result
}

func newSessionView(session domain.Session) SessionView {
	view := SessionView{
		ID:            session.ID,
		Status:        session.Status.String(),
		SessionStart:  clock.FormatTimestamp(session.SessionStart),
		Duration:      session.Duration,
		DurationLabel: formatDuration(session.Duration),
		Timezone:      session.Timezone,
	}
	if session.SessionEnd != nil {
		view.SessionEnd = clock.FormatTimestamp(*session.SessionEnd)
	}
	return view
}

func emptySessionsResult() SessionsResult {
	return SessionsResult{
		Sessions:   []SessionView{},
		Statistics: Statistics{AttendanceRatio: "0/0"},
	}
}

func (s *AttendanceService) log() *zap.Logger {
	if s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}
