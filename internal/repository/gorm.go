package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiaot623/gogo/fieldops/internal/domain"
)

// PgErrUniqueViolation is the PostgreSQL unique_violation error code.
const PgErrUniqueViolation = "23505"

// GormStore implements Store on top of GORM. It backs the postgres
// deployment and the pure-Go sqlite driver.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens a GORM connection for driver ("postgres" or
// "gorm-sqlite") and migrates the schema.
func NewGormStore(driver, dsn string) (*GormStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverGormSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported gorm driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverGormSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
			sqlDB.SetMaxOpenConns(1)
			sqlDB.SetMaxIdleConns(1)
		}
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	store := &GormStore{db: db}
	if err := store.migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *GormStore) migrate() error {
	if err := s.db.AutoMigrate(
		&accountRecord{},
		&missionRecord{},
		&workSessionRecord{},
		&workSessionPauseRecord{},
	); err != nil {
		return err
	}

	// Partial unique indexes are outside what struct tags can express.
	partial := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_work_sessions_active ON work_sessions (account_id) WHERE status IN ('Started', 'Paused')`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_work_session_pauses_open ON work_session_pauses (work_session_id) WHERE resume_time IS NULL`,
	}
	for _, ddl := range partial {
		if err := s.db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, ddl)
		}
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isGormUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == PgErrUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateAccount creates a new account projection.
func (s *GormStore) CreateAccount(ctx context.Context, account *domain.Account) error {
	rec := accountRecord{FirstName: account.FirstName, LastName: account.LastName}
	if !account.CreatedAt.IsZero() {
		rec.CreatedAt = utc(account.CreatedAt)
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return err
	}
	account.ID = rec.ID
	account.CreatedAt = rec.CreatedAt
	return nil
}

// GetAccount retrieves an account by ID.
func (s *GormStore) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	var rec accountRecord
	err := s.db.WithContext(ctx).First(&rec, accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

// CreateMission creates a new mission projection.
func (s *GormStore) CreateMission(ctx context.Context, mission *domain.Mission) error {
	rec := missionRecord{Description: mission.Description, Canceled: mission.Canceled}
	if !mission.CreatedAt.IsZero() {
		rec.CreatedAt = utc(mission.CreatedAt)
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return err
	}
	mission.ID = rec.ID
	mission.CreatedAt = rec.CreatedAt
	return nil
}

// GetMission retrieves a mission by ID.
func (s *GormStore) GetMission(ctx context.Context, missionID int64) (*domain.Mission, error) {
	var rec missionRecord
	err := s.db.WithContext(ctx).First(&rec, missionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

// SetMissionCanceled updates the canceled flag of a mission.
func (s *GormStore) SetMissionCanceled(ctx context.Context, missionID int64, canceled bool) error {
	return s.db.WithContext(ctx).Model(&missionRecord{}).
		Where("id = ?", missionID).
		Update("canceled", canceled).Error
}

// CreateWorkSession inserts a new session. A second running session for
// the same account fails with ErrConflict.
func (s *GormStore) CreateWorkSession(ctx context.Context, session *domain.WorkSession) error {
	rec := newWorkSessionRecord(session)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isGormUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	session.ID = rec.ID
	return nil
}

// PauseWorkSession moves a Started session to Paused and opens a pause.
func (s *GormStore) PauseWorkSession(ctx context.Context, sessionID int64, at time.Time) (*domain.WorkSessionPause, error) {
	var pause domain.WorkSessionPause
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&workSessionRecord{}).
			Where("id = ? AND status = ?", sessionID, string(domain.SessionStatusStarted)).
			Update("status", string(domain.SessionStatusPaused))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		rec := workSessionPauseRecord{WorkSessionID: sessionID, PauseTime: utc(at)}
		if err := tx.Create(&rec).Error; err != nil {
			if isGormUniqueViolation(err) {
				return ErrConflict
			}
			return err
		}
		pause = rec.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &pause, nil
}

// ResumeWorkSession closes the open pause of a Paused session and moves
// it back to Started.
func (s *GormStore) ResumeWorkSession(ctx context.Context, sessionID int64, at time.Time) (*domain.WorkSessionPause, error) {
	var pause domain.WorkSessionPause
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec workSessionPauseRecord
		err := tx.Where("work_session_id = ? AND resume_time IS NULL", sessionID).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoOpenPause
		}
		if err != nil {
			return err
		}

		resumeAt := utc(at)
		if err := tx.Model(&rec).Update("resume_time", resumeAt).Error; err != nil {
			return err
		}
		rec.ResumeTime = &resumeAt

		res := tx.Model(&workSessionRecord{}).
			Where("id = ? AND status = ?", sessionID, string(domain.SessionStatusPaused)).
			Update("status", string(domain.SessionStatusStarted))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		pause = rec.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &pause, nil
}

// StopWorkSession ends a session that is not already Ended.
func (s *GormStore) StopWorkSession(ctx context.Context, sessionID int64, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&workSessionRecord{}).
		Where("id = ? AND status <> ?", sessionID, string(domain.SessionStatusEnded)).
		Updates(map[string]interface{}{
			"status":   string(domain.SessionStatusEnded),
			"end_time": utc(at),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// CreateManualWorkSession inserts a finished session and its closed
// pauses in one transaction.
func (s *GormStore) CreateManualWorkSession(ctx context.Context, session *domain.WorkSession, pauses []domain.WorkSessionPause) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := newWorkSessionRecord(session)
		if err := tx.Create(&rec).Error; err != nil {
			if isGormUniqueViolation(err) {
				return ErrConflict
			}
			return err
		}
		session.ID = rec.ID

		for i := range pauses {
			pr := workSessionPauseRecord{
				WorkSessionID: rec.ID,
				PauseTime:     utc(pauses[i].PauseTime),
				ResumeTime:    utcPtr(pauses[i].ResumeTime),
			}
			if err := tx.Create(&pr).Error; err != nil {
				if isGormUniqueViolation(err) {
					return ErrConflict
				}
				return err
			}
			pauses[i].ID = pr.ID
			pauses[i].WorkSessionID = rec.ID
		}
		return nil
	})
}

// GetWorkSession retrieves a session by ID.
func (s *GormStore) GetWorkSession(ctx context.Context, sessionID int64) (*domain.WorkSession, error) {
	var rec workSessionRecord
	err := s.db.WithContext(ctx).First(&rec, sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ws := rec.toDomain()
	return &ws, nil
}

func (s *GormStore) firstSession(q *gorm.DB) (*domain.WorkSession, error) {
	var recs []workSessionRecord
	if err := q.Limit(1).Find(&recs).Error; err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	ws := recs[0].toDomain()
	return &ws, nil
}

// GetActiveWorkSession returns the Started or Paused session of an account.
func (s *GormStore) GetActiveWorkSession(ctx context.Context, accountID int64) (*domain.WorkSession, error) {
	return s.firstSession(s.db.WithContext(ctx).Model(&workSessionRecord{}).
		Where("account_id = ? AND status IN ?", accountID,
			[]string{string(domain.SessionStatusStarted), string(domain.SessionStatusPaused)}).
		Order("start_time DESC, id DESC"))
}

// LatestOpenWorkSession returns the newest session of an account without
// an end time whose mission, if any, is not canceled.
func (s *GormStore) LatestOpenWorkSession(ctx context.Context, accountID int64) (*domain.WorkSession, error) {
	return s.firstSession(s.db.WithContext(ctx).Model(&workSessionRecord{}).
		Select("work_sessions.*").
		Joins("LEFT JOIN missions ON missions.id = work_sessions.mission_id").
		Where("work_sessions.account_id = ? AND work_sessions.end_time IS NULL", accountID).
		Where("(work_sessions.mission_id IS NULL OR missions.id IS NULL OR missions.canceled = ?)", false).
		Order("work_sessions.start_time DESC, work_sessions.id DESC"))
}

// ListWorkSessions lists sessions matching filter, newest first.
func (s *GormStore) ListWorkSessions(ctx context.Context, filter WorkSessionFilter) ([]domain.WorkSession, error) {
	q := s.db.WithContext(ctx).Model(&workSessionRecord{})
	if filter.AccountID != nil {
		q = q.Where("account_id = ?", *filter.AccountID)
	}
	if filter.MissionID != nil {
		q = q.Where("mission_id = ?", *filter.MissionID)
	}
	if filter.WithoutMission {
		q = q.Where("mission_id IS NULL")
	}
	if filter.From != nil {
		q = q.Where("start_time >= ?", utc(*filter.From))
	}
	if filter.To != nil {
		q = q.Where("start_time <= ?", utc(*filter.To))
	}
	q = q.Order("start_time DESC, id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var recs []workSessionRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	sessions := make([]domain.WorkSession, 0, len(recs))
	for _, rec := range recs {
		sessions = append(sessions, rec.toDomain())
	}
	return sessions, nil
}

// GetOpenPause returns the pause of a session that has not been resumed.
func (s *GormStore) GetOpenPause(ctx context.Context, sessionID int64) (*domain.WorkSessionPause, error) {
	var recs []workSessionPauseRecord
	err := s.db.WithContext(ctx).
		Where("work_session_id = ? AND resume_time IS NULL", sessionID).
		Limit(1).Find(&recs).Error
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	p := recs[0].toDomain()
	return &p, nil
}

// ListPauses lists the pauses of a session ordered by pause time.
func (s *GormStore) ListPauses(ctx context.Context, sessionID int64) ([]domain.WorkSessionPause, error) {
	byID, err := s.ListPausesForSessions(ctx, []int64{sessionID})
	if err != nil {
		return nil, err
	}
	return byID[sessionID], nil
}

// ListPausesForSessions lists the pauses of several sessions, grouped by
// session and ordered by pause time.
func (s *GormStore) ListPausesForSessions(ctx context.Context, sessionIDs []int64) (map[int64][]domain.WorkSessionPause, error) {
	out := make(map[int64][]domain.WorkSessionPause, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return out, nil
	}

	var recs []workSessionPauseRecord
	err := s.db.WithContext(ctx).
		Where("work_session_id IN ?", sessionIDs).
		Order("work_session_id, pause_time ASC, id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		out[rec.WorkSessionID] = append(out[rec.WorkSessionID], rec.toDomain())
	}
	return out, nil
}
