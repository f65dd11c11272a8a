package store

import (
	"time"

	"github.com/xiaot623/gogo/fieldops/internal/domain"
)

type accountRecord struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	FirstName string    `gorm:"column:first_name;type:varchar(100);not null"`
	LastName  string    `gorm:"column:last_name;type:varchar(100);not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (accountRecord) TableName() string { return "accounts" }

type missionRecord struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Description string    `gorm:"column:description;type:text;not null;default:''"`
	Canceled    bool      `gorm:"column:canceled;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (missionRecord) TableName() string { return "missions" }

type workSessionRecord struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement"`
	AccountID int64      `gorm:"column:account_id;not null;index:idx_work_sessions_account,priority:1"`
	MissionID *int64     `gorm:"column:mission_id;index:idx_work_sessions_mission,priority:1"`
	StartTime time.Time  `gorm:"column:start_time;not null;index:idx_work_sessions_account,priority:2;index:idx_work_sessions_mission,priority:2"`
	EndTime   *time.Time `gorm:"column:end_time"`
	Status    string     `gorm:"column:status;type:varchar(16);not null"`

	// Relationships
	Account *accountRecord           `gorm:"foreignKey:AccountID"`
	Mission *missionRecord           `gorm:"foreignKey:MissionID"`
	Pauses  []workSessionPauseRecord `gorm:"foreignKey:WorkSessionID;constraint:OnDelete:CASCADE"`
}

func (workSessionRecord) TableName() string { return "work_sessions" }

type workSessionPauseRecord struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement"`
	WorkSessionID int64      `gorm:"column:work_session_id;not null;index:idx_work_session_pauses_session,priority:1"`
	PauseTime     time.Time  `gorm:"column:pause_time;not null;index:idx_work_session_pauses_session,priority:2"`
	ResumeTime    *time.Time `gorm:"column:resume_time"`
}

func (workSessionPauseRecord) TableName() string { return "work_session_pauses" }

func (r accountRecord) toDomain() *domain.Account {
	return &domain.Account{ID: r.ID, FirstName: r.FirstName, LastName: r.LastName, CreatedAt: r.CreatedAt}
}

func (r missionRecord) toDomain() *domain.Mission {
	return &domain.Mission{ID: r.ID, Description: r.Description, Canceled: r.Canceled, CreatedAt: r.CreatedAt}
}

func newWorkSessionRecord(ws *domain.WorkSession) workSessionRecord {
	return workSessionRecord{
		ID:        ws.ID,
		AccountID: ws.AccountID,
		MissionID: ws.MissionID,
		StartTime: utc(ws.StartTime),
		EndTime:   utcPtr(ws.EndTime),
		Status:    string(ws.Status),
	}
}

func (r workSessionRecord) toDomain() domain.WorkSession {
	return domain.WorkSession{
		ID:        r.ID,
		AccountID: r.AccountID,
		MissionID: r.MissionID,
		StartTime: utc(r.StartTime),
		EndTime:   utcPtr(r.EndTime),
		Status:    domain.SessionStatus(r.Status),
	}
}

func (r workSessionPauseRecord) toDomain() domain.WorkSessionPause {
	return domain.WorkSessionPause{
		ID:            r.ID,
		WorkSessionID: r.WorkSessionID,
		PauseTime:     utc(r.PauseTime),
		ResumeTime:    utcPtr(r.ResumeTime),
	}
}
