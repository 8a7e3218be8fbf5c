package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"session_control_backend/internal/model"
	"session_control_backend/internal/repository"
	"session_control_backend/internal/util"
	"session_control_backend/pkg/monitoring"
	"session_control_backend/pkg/tracing"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SubmissionService struct {
	DB          *gorm.DB
	Sessions    *repository.SessionRepository
	Submissions *repository.SubmissionRepository
	hooks       commitHooks
}

// RegisterCommitHook adds fn to the hooks run after a stored answer or note.
func (s *SubmissionService) RegisterCommitHook(fn CommitHook) {
	s.hooks.add(fn)
}

func NewSubmissionService(db *gorm.DB, sessions *repository.SessionRepository, submissions *repository.SubmissionRepository) *SubmissionService {
	return &SubmissionService{DB: db, Sessions: sessions, Submissions: submissions}
}

type SubmitAnswerInput struct {
	SessionID   uint            `json:"session_id"`
	StudentID   string          `json:"student_id"`
	StudentName string          `json:"student_name"`
	Answers     json.RawMessage `json:"answers" swaggertype:"object"`
	Score       int             `json:"score"`
}

// SubmitAnswer stores the first verified answer of a student. A second
// submission, including one that loses a race on the unique index, fails
// with ErrAnswerAlreadySubmitted.
func (s *SubmissionService) SubmitAnswer(ctx context.Context, in SubmitAnswerInput) (*model.VerifiedAnswer, error) {
	in.StudentID = strings.TrimSpace(in.StudentID)
	if in.SessionID == 0 || in.StudentID == "" {
		return nil, fmt.Errorf("%w: session_id and student_id are required", util.ErrInvalidArgument)
	}
	payload := datatypes.JSON("null")
	if len(in.Answers) > 0 {
		if !json.Valid(in.Answers) {
			return nil, fmt.Errorf("%w: answers must be valid JSON", util.ErrInvalidArgument)
		}
		payload = datatypes.JSON(in.Answers)
	}

	ctx, span := tracing.Tracer.Start(ctx, "submission.answer")
	var answer *model.VerifiedAnswer
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Sessions.WithTx(tx).FindByID(in.SessionID); err != nil {
			return err
		}
		repo := s.Submissions.WithTx(tx)

		exists, err := repo.AnswerExists(in.SessionID, in.StudentID)
		if err != nil {
			return err
		}
		if exists {
			return util.ErrAnswerAlreadySubmitted
		}

		answer = &model.VerifiedAnswer{
			SessionID:   in.SessionID,
			StudentID:   in.StudentID,
			StudentName: in.StudentName,
			Answers:     payload,
			Score:       in.Score,
		}
		if err := repo.CreateAnswer(answer); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return util.ErrAnswerAlreadySubmitted
			}
			return err
		}
		return nil
	})
	tracing.End(span, err)

	switch {
	case err == nil:
		monitoring.AnswerSubmissions.WithLabelValues("stored").Inc()
	case errors.Is(err, util.ErrAnswerAlreadySubmitted):
		monitoring.AnswerSubmissions.WithLabelValues("conflict").Inc()
	}
	if err != nil {
		return nil, err
	}
	s.hooks.run(ctx, in.SessionID)
	return answer, nil
}

type ExtraNoteInput struct {
	SessionID uint    `json:"session_id"`
	StudentID int     `json:"student_id"`
	Username  string  `json:"estudante_username"`
	Value     float64 `json:"extra_notes"`
}

// AddExtraNote overwrites the student's note in the session or inserts a new
// one. created reports which of the two happened.
func (s *SubmissionService) AddExtraNote(ctx context.Context, in ExtraNoteInput) (note *model.ExtraNote, created bool, err error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.SessionID == 0 || in.Username == "" {
		return nil, false, fmt.Errorf("%w: session_id and estudante_username are required", util.ErrInvalidArgument)
	}

	ctx, span := tracing.Tracer.Start(ctx, "submission.extra_note")
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Sessions.WithTx(tx).FindByID(in.SessionID); err != nil {
			return err
		}
		repo := s.Submissions.WithTx(tx)

		existing, err := repo.FindExtraNote(in.SessionID, in.Username)
		if err != nil {
			return err
		}
		created = existing == nil

		if err := repo.UpsertExtraNote(&model.ExtraNote{
			SessionID:       in.SessionID,
			StudentID:       in.StudentID,
			StudentUsername: in.Username,
			Value:           in.Value,
		}); err != nil {
			return err
		}
		note, err = repo.FindExtraNote(in.SessionID, in.Username)
		return err
	})
	tracing.End(span, err)
	if err != nil {
		return nil, false, err
	}
	s.hooks.run(ctx, in.SessionID)
	return note, created, nil
}
