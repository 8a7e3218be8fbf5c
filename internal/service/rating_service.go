package service

import (
	"context"
	"fmt"
	"strings"

	"session_control_backend/internal/model"
	"session_control_backend/internal/repository"
	"session_control_backend/internal/util"
	"session_control_backend/pkg/monitoring"
	"session_control_backend/pkg/tracing"

	"gorm.io/gorm"
)

type RatingService struct {
	DB       *gorm.DB
	Sessions *repository.SessionRepository
	Ratings  *repository.RatingRepository
	hooks    commitHooks
}

func (s *RatingService) RegisterCommitHook(fn CommitHook) {
	s.hooks.add(fn)
}

func NewRatingService(db *gorm.DB, sessions *repository.SessionRepository, ratings *repository.RatingRepository) *RatingService {
	return &RatingService{DB: db, Sessions: sessions, Ratings: ratings}
}

type RatingView struct {
	SessionID     uint    `json:"session_id"`
	RatingAverage float64 `json:"rating_average"`
	RatingCount   int     `json:"rating_count"`
	StudentRating *int    `json:"student_rating"`
}

// Rate upserts the student's rating and refreshes the stored aggregate in the
// same transaction.
func (s *RatingService) Rate(ctx context.Context, sessionID uint, studentID string, rating int) (*RatingView, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, fmt.Errorf("%w: student_id is required", util.ErrInvalidArgument)
	}
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", util.ErrInvalidArgument)
	}

	ctx, span := tracing.Tracer.Start(ctx, "rating.rate")
	var view *RatingView
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessions := s.Sessions.WithTx(tx)
		ratings := s.Ratings.WithTx(tx)

		if _, err := sessions.FindByIDForUpdate(sessionID); err != nil {
			return err
		}
		if err := ratings.Upsert(&model.SessionRating{SessionID: sessionID, StudentID: studentID, Rating: rating}); err != nil {
			return err
		}
		agg, err := ratings.Aggregate(sessionID)
		if err != nil {
			return err
		}
		if err := sessions.Update(sessionID, map[string]interface{}{
			"rating_average": agg.Average,
			"rating_count":   agg.Count,
		}); err != nil {
			return err
		}
		view = &RatingView{SessionID: sessionID, RatingAverage: agg.Average, RatingCount: agg.Count}
		return nil
	})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}

	monitoring.RatingsSubmitted.Observe(float64(rating))
	s.hooks.run(ctx, sessionID)
	return view, nil
}

// Get returns the stored aggregate and, when studentID is set, that student's
// own rating (nil when they have not rated).
func (s *RatingService) Get(ctx context.Context, sessionID uint, studentID string) (*RatingView, error) {
	db := s.DB.WithContext(ctx)
	session, err := s.Sessions.WithTx(db).FindByID(sessionID)
	if err != nil {
		return nil, err
	}

	view := &RatingView{SessionID: session.ID, RatingAverage: session.RatingAverage, RatingCount: session.RatingCount}
	if studentID = strings.TrimSpace(studentID); studentID != "" {
		if view.StudentRating, err = s.Ratings.WithTx(db).FindStudentRating(sessionID, studentID); err != nil {
			return nil, err
		}
	}
	return view, nil
}
