package repository

import (
	"errors"
	"session_control_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) WithTx(tx *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: tx}
}

func (r *SubmissionRepository) AnswerExists(sessionID uint, studentID string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.VerifiedAnswer{}).
		Where("session_id = ? AND student_id = ?", sessionID, studentID).
		Count(&count).Error
	return count > 0, err
}

// CreateAnswer inserts a new answer row. The unique index on
// (session_id, student_id) rejects a second row with gorm.ErrDuplicatedKey.
func (r *SubmissionRepository) CreateAnswer(answer *model.VerifiedAnswer) error {
	return r.DB.Create(answer).Error
}

func (r *SubmissionRepository) AnswerScores(sessionID uint) ([]int, error) {
	scores := []int{}
	err := r.DB.Model(&model.VerifiedAnswer{}).Where("session_id = ?", sessionID).Order("id asc").Pluck("score", &scores).Error
	return scores, err
}

func (r *SubmissionRepository) AnswersByStudent(studentID string) ([]model.VerifiedAnswer, error) {
	var answers []model.VerifiedAnswer
	err := r.DB.Where("student_id = ?", studentID).Order("session_id asc, id asc").Find(&answers).Error
	return answers, err
}

// FindExtraNote returns (nil, nil) when the student has no note in the session.
func (r *SubmissionRepository) FindExtraNote(sessionID uint, username string) (*model.ExtraNote, error) {
	var note model.ExtraNote
	err := r.DB.Where("estudante_username = ? AND session_id = ?", username, sessionID).First(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// UpsertExtraNote inserts the note or overwrites the one stored for the same
// (session_id, estudante_username).
func (r *SubmissionRepository) UpsertExtraNote(note *model.ExtraNote) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "estudante_username"}},
		DoUpdates: clause.AssignmentColumns([]string{"extra_notes", "student_id", "updated_at"}),
	}).Create(note).Error
}

func (r *SubmissionRepository) ExtraNoteValues(sessionID uint) ([]float64, error) {
	values := []float64{}
	err := r.DB.Model(&model.ExtraNote{}).Where("session_id = ?", sessionID).Order("id asc").Pluck("extra_notes", &values).Error
	return values, err
}

func (r *SubmissionRepository) ExtraNotesByStudent(studentID int) ([]model.ExtraNote, error) {
	var notes []model.ExtraNote
	err := r.DB.Where("student_id = ?", studentID).Order("session_id asc, id asc").Find(&notes).Error
	return notes, err
}
