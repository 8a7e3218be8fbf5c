package repository

import (
	"errors"
	"session_control_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RatingRepository struct {
	DB *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{DB: db}
}

func (r *RatingRepository) WithTx(tx *gorm.DB) *RatingRepository {
	return &RatingRepository{DB: tx}
}

// Upsert inserts the rating or overwrites the student's previous one.
func (r *RatingRepository) Upsert(rating *model.SessionRating) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating"}),
	}).Create(rating).Error
}

type RatingAggregate struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Aggregate computes the mean and count over the latest rating of each student.
func (r *RatingRepository) Aggregate(sessionID uint) (RatingAggregate, error) {
	var ratings []int
	if err := r.DB.Model(&model.SessionRating{}).Where("session_id = ?", sessionID).Pluck("rating", &ratings).Error; err != nil {
		return RatingAggregate{}, err
	}
	agg := RatingAggregate{Count: len(ratings)}
	if agg.Count == 0 {
		return agg, nil
	}
	sum := 0
	for _, v := range ratings {
		sum += v
	}
	agg.Average = float64(sum) / float64(agg.Count)
	return agg, nil
}

// FindStudentRating returns nil when the student has not rated the session.
func (r *RatingRepository) FindStudentRating(sessionID uint, studentID string) (*int, error) {
	var rating model.SessionRating
	err := r.DB.Where("session_id = ? AND student_id = ?", sessionID, studentID).First(&rating).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rating.Rating, nil
}

func (r *RatingRepository) RatingsByStudent(studentID string) ([]model.SessionRating, error) {
	var ratings []model.SessionRating
	err := r.DB.Where("student_id = ?", studentID).Order("session_id asc").Find(&ratings).Error
	return ratings, err
}
