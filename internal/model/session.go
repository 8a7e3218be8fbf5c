package model

import "time"

type SessionStatus string

const (
	SessionWaiting    SessionStatus = "aguardando"
	SessionInProgress SessionStatus = "in-progress"
	SessionFinished   SessionStatus = "finished"
)

// Session 一次教学策略的课堂运行
// swagger:model
type Session struct {
	ID                     uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	Code                   string        `gorm:"type:varchar(16);uniqueIndex;not null" json:"code"`
	Status                 SessionStatus `gorm:"type:varchar(20);not null;default:aguardando" json:"status"`
	StartTime              *time.Time    `json:"start_time"`
	CurrentTacticIndex     int           `gorm:"not null;default:0" json:"current_tactic_index"`
	CurrentTacticStartedAt *time.Time    `json:"current_tactic_started_at"`
	UseAgent               bool          `gorm:"not null;default:false" json:"use_agent"`
	EndOnNextCompletion    bool          `gorm:"not null;default:false" json:"end_on_next_completion"`
	ExecutedIndices        string        `gorm:"type:text" json:"-"`
	OriginalStrategyID     *string       `gorm:"type:varchar(64)" json:"original_strategy_id"`
	RatingAverage          float64       `gorm:"not null;default:0" json:"rating_average"`
	RatingCount            int           `gorm:"not null;default:0" json:"rating_count"`
	CreatedAt              time.Time     `json:"created_at"`
	UpdatedAt              time.Time     `json:"updated_at"`
}

func (Session) TableName() string {
	return "session"
}

// SessionStrategy is logically singular per session even though the table allows more rows.
type SessionStrategy struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID  uint   `gorm:"index;not null" json:"session_id"`
	StrategyID string `gorm:"type:varchar(64);not null" json:"strategy_id"`
}

func (SessionStrategy) TableName() string {
	return "session_strategies"
}

type SessionTeacher struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID uint   `gorm:"index;not null" json:"session_id"`
	TeacherID string `gorm:"type:varchar(64);not null" json:"teacher_id"`
}

func (SessionTeacher) TableName() string {
	return "session_teachers"
}

type SessionStudent struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID uint   `gorm:"index;not null" json:"session_id"`
	StudentID string `gorm:"type:varchar(64);not null" json:"student_id"`
}

func (SessionStudent) TableName() string {
	return "session_students"
}

type SessionDomain struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID uint   `gorm:"index;not null" json:"session_id"`
	DomainID  string `gorm:"type:varchar(64);not null" json:"domain_id"`
}

func (SessionDomain) TableName() string {
	return "session_domains"
}

// SessionDetails is the composite read model returned by the details endpoints.
// swagger:model
type SessionDetails struct {
	Session
	ExecutedIndices []int            `json:"executed_indices"`
	Strategies      []string         `json:"strategies"`
	Teachers        []string         `json:"teachers"`
	Students        []string         `json:"students"`
	Domains         []string         `json:"domains"`
	VerifiedAnswers []VerifiedAnswer `json:"verified_answers"`
	ExtraNotes      []ExtraNote      `json:"extra_notes"`
}
