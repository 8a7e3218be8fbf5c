package model

import (
	"time"

	"gorm.io/datatypes"
)

// VerifiedAnswer 学生在一次课堂中的作答，(session_id, student_id) 唯一
// swagger:model
type VerifiedAnswer struct {
	ID          uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID   uint           `gorm:"not null;uniqueIndex:idx_verified_answers_session_student" json:"session_id"`
	StudentID   string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_verified_answers_session_student" json:"student_id"`
	StudentName string         `gorm:"type:varchar(255)" json:"student_name"`
	Answers     datatypes.JSON `json:"answers" swaggertype:"object"`
	Score       int            `gorm:"not null;default:0" json:"score"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (VerifiedAnswer) TableName() string {
	return "verified_answers"
}

// ExtraNote 额外加分，按 (session_id, estudante_username) 覆盖写入
// swagger:model
type ExtraNote struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID       uint      `gorm:"not null;uniqueIndex:idx_extra_notes_session_username" json:"session_id"`
	StudentID       int       `gorm:"index;not null;default:0" json:"student_id"`
	StudentUsername string    `gorm:"column:estudante_username;type:varchar(255);not null;uniqueIndex:idx_extra_notes_session_username" json:"estudante_username"`
	Value           float64   `gorm:"column:extra_notes;not null;default:0" json:"extra_notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (ExtraNote) TableName() string {
	return "extra_notes"
}

// SessionRating 学生对课堂的评分 (1-5)
// swagger:model
type SessionRating struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID uint   `gorm:"not null;uniqueIndex:idx_session_ratings_session_student" json:"session_id"`
	StudentID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_session_ratings_session_student" json:"student_id"`
	Rating    int    `gorm:"not null" json:"rating"`
}

func (SessionRating) TableName() string {
	return "session_ratings"
}
