package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/xiaot623/gogo/fieldops/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS missions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			description TEXT NOT NULL DEFAULT '',
			canceled INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS work_sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id INTEGER NOT NULL,
			mission_id INTEGER,
			start_time DATETIME NOT NULL,
			end_time DATETIME,
			status TEXT NOT NULL CHECK (status IN ('Started', 'Paused', 'Ended')),
			FOREIGN KEY (account_id) REFERENCES accounts(id),
			FOREIGN KEY (mission_id) REFERENCES missions(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_work_sessions_account ON work_sessions(account_id, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_work_sessions_mission ON work_sessions(mission_id, start_time)`,
		// One running session per account.
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_work_sessions_active ON work_sessions(account_id) WHERE status IN ('Started', 'Paused')`,
		`CREATE TABLE IF NOT EXISTS work_session_pauses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			work_session_id INTEGER NOT NULL,
			pause_time DATETIME NOT NULL,
			resume_time DATETIME,
			FOREIGN KEY (work_session_id) REFERENCES work_sessions(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_work_session_pauses_session ON work_session_pauses(work_session_id, pause_time)`,
		// One open pause per session.
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_work_session_pauses_open ON work_session_pauses(work_session_id) WHERE resume_time IS NULL`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isSQLiteUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const workSessionColumns = `ws.id, ws.account_id, ws.mission_id, ws.start_time, ws.end_time, ws.status`

func scanWorkSession(row rowScanner) (*domain.WorkSession, error) {
	var ws domain.WorkSession
	var missionID sql.NullInt64
	var endTime sql.NullTime
	if err := row.Scan(&ws.ID, &ws.AccountID, &missionID, &ws.StartTime, &endTime, &ws.Status); err != nil {
		return nil, err
	}
	if missionID.Valid {
		ws.MissionID = &missionID.Int64
	}
	ws.StartTime = ws.StartTime.UTC()
	if endTime.Valid {
		t := endTime.Time.UTC()
		ws.EndTime = &t
	}
	return &ws, nil
}

const pauseColumns = `id, work_session_id, pause_time, resume_time`

func scanPause(row rowScanner) (*domain.WorkSessionPause, error) {
	var p domain.WorkSessionPause
	var resumeTime sql.NullTime
	if err := row.Scan(&p.ID, &p.WorkSessionID, &p.PauseTime, &resumeTime); err != nil {
		return nil, err
	}
	p.PauseTime = p.PauseTime.UTC()
	if resumeTime.Valid {
		t := resumeTime.Time.UTC()
		p.ResumeTime = &t
	}
	return &p, nil
}

// CreateAccount creates a new account projection.
func (s *SQLiteStore) CreateAccount(ctx context.Context, account *domain.Account) error {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (first_name, last_name, created_at) VALUES (?, ?, ?)`,
		account.FirstName, account.LastName, utc(account.CreatedAt))
	if err != nil {
		return err
	}
	account.ID, err = res.LastInsertId()
	return err
}

// GetAccount retrieves an account by ID.
func (s *SQLiteStore) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	var account domain.Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, created_at FROM accounts WHERE id = ?`,
		accountID).Scan(&account.ID, &account.FirstName, &account.LastName, &account.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// CreateMission creates a new mission projection.
func (s *SQLiteStore) CreateMission(ctx context.Context, mission *domain.Mission) error {
	if mission.CreatedAt.IsZero() {
		mission.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO missions (description, canceled, created_at) VALUES (?, ?, ?)`,
		mission.Description, mission.Canceled, utc(mission.CreatedAt))
	if err != nil {
		return err
	}
	mission.ID, err = res.LastInsertId()
	return err
}

// GetMission retrieves a mission by ID.
func (s *SQLiteStore) GetMission(ctx context.Context, missionID int64) (*domain.Mission, error) {
	var mission domain.Mission
	err := s.db.QueryRowContext(ctx,
		`SELECT id, description, canceled, created_at FROM missions WHERE id = ?`,
		missionID).Scan(&mission.ID, &mission.Description, &mission.Canceled, &mission.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mission, nil
}

// SetMissionCanceled updates the canceled flag of a mission.
func (s *SQLiteStore) SetMissionCanceled(ctx context.Context, missionID int64, canceled bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE missions SET canceled = ? WHERE id = ?`,
		canceled, missionID)
	return err
}

// CreateWorkSession inserts a new session. A second running session for
// the same account fails with ErrConflict.
func (s *SQLiteStore) CreateWorkSession(ctx context.Context, session *domain.WorkSession) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO work_sessions (account_id, mission_id, start_time, end_time, status) VALUES (?, ?, ?, ?, ?)`,
		session.AccountID, nullInt64(session.MissionID), utc(session.StartTime), nullTime(session.EndTime), session.Status)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	session.ID, err = res.LastInsertId()
	return err
}

// PauseWorkSession moves a Started session to Paused and opens a pause.
func (s *SQLiteStore) PauseWorkSession(ctx context.Context, sessionID int64, at time.Time) (*domain.WorkSessionPause, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE work_sessions SET status = ? WHERE id = ? AND status = ?`,
		domain.SessionStatusPaused, sessionID, domain.SessionStatusStarted)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrConflict
	}

	pause := &domain.WorkSessionPause{WorkSessionID: sessionID, PauseTime: utc(at)}
	res, err = tx.ExecContext(ctx,
		`INSERT INTO work_session_pauses (work_session_id, pause_time) VALUES (?, ?)`,
		sessionID, pause.PauseTime)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	if pause.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return pause, nil
}

// ResumeWorkSession closes the open pause of a Paused session and moves
// it back to Started.
func (s *SQLiteStore) ResumeWorkSession(ctx context.Context, sessionID int64, at time.Time) (*domain.WorkSessionPause, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	pause, err := scanPause(tx.QueryRowContext(ctx,
		`SELECT `+pauseColumns+` FROM work_session_pauses WHERE work_session_id = ? AND resume_time IS NULL`,
		sessionID))
	if err == sql.ErrNoRows {
		return nil, ErrNoOpenPause
	}
	if err != nil {
		return nil, err
	}

	resumeAt := utc(at)
	if _, err := tx.ExecContext(ctx,
		`UPDATE work_session_pauses SET resume_time = ? WHERE id = ?`,
		resumeAt, pause.ID); err != nil {
		return nil, err
	}
	pause.ResumeTime = &resumeAt

	res, err := tx.ExecContext(ctx,
		`UPDATE work_sessions SET status = ? WHERE id = ? AND status = ?`,
		domain.SessionStatusStarted, sessionID, domain.SessionStatusPaused)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrConflict
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return pause, nil
}

// StopWorkSession ends a session that is not already Ended.
func (s *SQLiteStore) StopWorkSession(ctx context.Context, sessionID int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE work_sessions SET status = ?, end_time = ? WHERE id = ? AND status != ?`,
		domain.SessionStatusEnded, utc(at), sessionID, domain.SessionStatusEnded)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// CreateManualWorkSession inserts a finished session and its closed
// pauses in one transaction.
func (s *SQLiteStore) CreateManualWorkSession(ctx context.Context, session *domain.WorkSession, pauses []domain.WorkSessionPause) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO work_sessions (account_id, mission_id, start_time, end_time, status) VALUES (?, ?, ?, ?, ?)`,
		session.AccountID, nullInt64(session.MissionID), utc(session.StartTime), nullTime(session.EndTime), session.Status)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	if session.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	for i := range pauses {
		pauses[i].WorkSessionID = session.ID
		res, err := tx.ExecContext(ctx,
			`INSERT INTO work_session_pauses (work_session_id, pause_time, resume_time) VALUES (?, ?, ?)`,
			session.ID, utc(pauses[i].PauseTime), nullTime(pauses[i].ResumeTime))
		if err != nil {
			if isSQLiteUniqueViolation(err) {
				return ErrConflict
			}
			return err
		}
		if pauses[i].ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetWorkSession retrieves a session by ID.
func (s *SQLiteStore) GetWorkSession(ctx context.Context, sessionID int64) (*domain.WorkSession, error) {
	ws, err := scanWorkSession(s.db.QueryRowContext(ctx,
		`SELECT `+workSessionColumns+` FROM work_sessions ws WHERE ws.id = ?`, sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return ws, err
}

// GetActiveWorkSession returns the Started or Paused session of an account.
func (s *SQLiteStore) GetActiveWorkSession(ctx context.Context, accountID int64) (*domain.WorkSession, error) {
	ws, err := scanWorkSession(s.db.QueryRowContext(ctx,
		`SELECT `+workSessionColumns+` FROM work_sessions ws WHERE ws.account_id = ? AND ws.status IN (?, ?)
		 ORDER BY ws.start_time DESC, ws.id DESC LIMIT 1`,
		accountID, domain.SessionStatusStarted, domain.SessionStatusPaused))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return ws, err
}

// LatestOpenWorkSession returns the newest session of an account without
// an end time whose mission, if any, is not canceled.
func (s *SQLiteStore) LatestOpenWorkSession(ctx context.Context, accountID int64) (*domain.WorkSession, error) {
	ws, err := scanWorkSession(s.db.QueryRowContext(ctx,
		`SELECT `+workSessionColumns+` FROM work_sessions ws
		 LEFT JOIN missions m ON m.id = ws.mission_id
		 WHERE ws.account_id = ? AND ws.end_time IS NULL
		   AND (ws.mission_id IS NULL OR COALESCE(m.canceled, 0) = 0)
		 ORDER BY ws.start_time DESC, ws.id DESC LIMIT 1`,
		accountID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return ws, err
}

// ListWorkSessions lists sessions matching filter, newest first.
func (s *SQLiteStore) ListWorkSessions(ctx context.Context, filter WorkSessionFilter) ([]domain.WorkSession, error) {
	query := `SELECT ` + workSessionColumns + ` FROM work_sessions ws WHERE 1 = 1`
	var args []interface{}

	if filter.AccountID != nil {
		query += ` AND ws.account_id = ?`
		args = append(args, *filter.AccountID)
	}
	if filter.MissionID != nil {
		query += ` AND ws.mission_id = ?`
		args = append(args, *filter.MissionID)
	}
	if filter.WithoutMission {
		query += ` AND ws.mission_id IS NULL`
	}
	if filter.From != nil {
		query += ` AND ws.start_time >= ?`
		args = append(args, utc(*filter.From))
	}
	if filter.To != nil {
		query += ` AND ws.start_time <= ?`
		args = append(args, utc(*filter.To))
	}

	query += ` ORDER BY ws.start_time DESC, ws.id DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.WorkSession
	for rows.Next() {
		ws, err := scanWorkSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *ws)
	}
	return sessions, rows.Err()
}

// GetOpenPause returns the pause of a session that has not been resumed.
func (s *SQLiteStore) GetOpenPause(ctx context.Context, sessionID int64) (*domain.WorkSessionPause, error) {
	p, err := scanPause(s.db.QueryRowContext(ctx,
		`SELECT `+pauseColumns+` FROM work_session_pauses WHERE work_session_id = ? AND resume_time IS NULL`,
		sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// ListPauses lists the pauses of a session ordered by pause time.
func (s *SQLiteStore) ListPauses(ctx context.Context, sessionID int64) ([]domain.WorkSessionPause, error) {
	byID, err := s.ListPausesForSessions(ctx, []int64{sessionID})
	if err != nil {
		return nil, err
	}
	return byID[sessionID], nil
}

// ListPausesForSessions lists the pauses of several sessions, grouped by
// session and ordered by pause time.
func (s *SQLiteStore) ListPausesForSessions(ctx context.Context, sessionIDs []int64) (map[int64][]domain.WorkSessionPause, error) {
	out := make(map[int64][]domain.WorkSessionPause, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(sessionIDs))
	args := make([]interface{}, len(sessionIDs))
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT `+pauseColumns+` FROM work_session_pauses WHERE work_session_id IN (%s)
		ORDER BY work_session_id, pause_time ASC, id ASC`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPause(rows)
		if err != nil {
			return nil, err
		}
		out[p.WorkSessionID] = append(out[p.WorkSessionID], *p)
	}
	return out, rows.Err()
}
