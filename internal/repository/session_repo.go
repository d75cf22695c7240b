package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sfa-backend/internal/clock"
	"sfa-backend/internal/domain"
)

// SessionRepository expone las operaciones de persistencia de sesiones de
// asistencia. WithUserLock serializa las escrituras por usuario.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) (int64, error)
	GetByID(ctx context.Context, id int64) (domain.Session, error)
	LatestByUserStatusAndDay(ctx context.Context, userID int64, status domain.SessionStatus, dayStart, dayEnd time.Time) (domain.Session, error)
	ActiveByUser(ctx context.Context, userID int64) ([]domain.Session, error)
	ListByUserAndRange(ctx context.Context, userID int64, from, to time.Time, limit int) ([]domain.Session, error)
	Reopen(ctx context.Context, id int64) error
	Close(ctx context.Context, id int64, sessionEnd time.Time, duration int) error
	WithUserLock(ctx context.Context, userID int64, fn func(ctx context.Context, repo SessionRepository) error) error
}

// pgQuerier es el subconjunto comun de *pgxpool.Pool y pgx.Tx que usan las
// queries, para que el repositorio funcione igual dentro de una transaccion.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgSessionRepository struct {
	pool *pgxpool.Pool
	db   pgQuerier
}

func NewPgSessionRepository(pool *pgxpool.Pool) *PgSessionRepository {
	return &PgSessionRepository{pool: pool, db: pool}
}

// Clase del advisory lock para escrituras de sesiones, en los bits altos de
// la clave. Forma de un solo bigint: el id completo entra en la clave y dos
// usuarios distintos nunca comparten lock por truncamiento.
const sessionLockClass = int64(0x5e55)

func sessionLockKey(userID int64) int64 {
	return (sessionLockClass << 48) ^ userID
}

func (r *PgSessionRepository) WithUserLock(ctx context.Context, userID int64, fn func(ctx context.Context, repo SessionRepository) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", sessionLockKey(userID)); err != nil {
			return err
		}
		return fn(ctx, &PgSessionRepository{pool: r.pool, db: tx})
	})
}

const sessionColumns = `id, user_id, status, session_start, session_end, duration, timezone, created_at`

func (r *PgSessionRepository) Create(ctx context.Context, session domain.Session) (int64, error) {
	const query = `
		INSERT INTO sessions (user_id, status, session_start, session_end, duration, timezone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query,
		session.UserID,
		session.Status,
		session.SessionStart,
		session.SessionEnd,
		session.Duration,
		session.Timezone,
		session.CreatedAt,
	).Scan(&id)
	return id, err
}

func scanSession(row pgx.Row) (domain.Session, error) {
	var session domain.Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Status,
		&session.SessionStart,
		&session.SessionEnd,
		&session.Duration,
		&session.Timezone,
		&session.CreatedAt,
	)
	if err != nil {
		return domain.Session{}, err
	}
	// Las columnas timestamp llegan etiquetadas UTC; se reinterpretan como
	// hora de Nairobi para que la aritmetica de instantes no quede corrida.
	session.SessionStart = clock.Localize(session.SessionStart)
	if session.SessionEnd != nil {
		end := clock.Localize(*session.SessionEnd)
		session.SessionEnd = &end
	}
	session.CreatedAt = clock.Localize(session.CreatedAt)
	return session, nil
}

func (r *PgSessionRepository) GetByID(ctx context.Context, id int64) (domain.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1
	`
	return scanSession(r.db.QueryRow(ctx, query, id))
}

func (r *PgSessionRepository) LatestByUserStatusAndDay(ctx context.Context, userID int64, status domain.SessionStatus, dayStart, dayEnd time.Time) (domain.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND status = $2 AND session_start >= $3 AND session_start < $4
		ORDER BY session_start DESC
		LIMIT 1
	`
	return scanSession(r.db.QueryRow(ctx, query, userID, status, dayStart, dayEnd))
}

func (r *PgSessionRepository) ActiveByUser(ctx context.Context, userID int64) ([]domain.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND status = $2
		ORDER BY session_start DESC
	`
	rows, err := r.db.Query(ctx, query, userID, domain.SessionActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

func (r *PgSessionRepository) ListByUserAndRange(ctx context.Context, userID int64, from, to time.Time, limit int) ([]domain.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND session_start >= $2 AND session_start < $3
		ORDER BY session_start DESC
	`
	const queryLimited = query + `
		LIMIT $4
	`
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.Query(ctx, queryLimited, userID, from, to, limit)
	} else {
		rows, err = r.db.Query(ctx, query, userID, from, to)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

func (r *PgSessionRepository) Reopen(ctx context.Context, id int64) error {
	const query = `
		UPDATE sessions
		SET status = $2, session_end = NULL, duration = 0
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id, domain.SessionActive)
	return err
}

func (r *PgSessionRepository) Close(ctx context.Context, id int64, sessionEnd time.Time, duration int) error {
	const query = `
		UPDATE sessions
		SET status = $2, session_end = $3, duration = $4
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id, domain.SessionCompleted, sessionEnd, duration)
	return err
}

func collectSessions(rows pgx.Rows) ([]domain.Session, error) {
	var sessions []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
