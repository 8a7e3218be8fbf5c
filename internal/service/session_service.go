package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"session_control_backend/internal/model"
	"session_control_backend/internal/repository"
	"session_control_backend/internal/util"
	"session_control_backend/pkg/logger"
	"session_control_backend/pkg/tracing"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxCodeAttempts = 10

type SessionService struct {
	DB       *gorm.DB
	Sessions *repository.SessionRepository
	newCode  func() (string, error)
	onDelete commitHooks
}

// RegisterDeleteHook adds fn to the hooks run after a session is deleted.
func (s *SessionService) RegisterDeleteHook(fn CommitHook) {
	s.onDelete.add(fn)
}

func NewSessionService(db *gorm.DB, sessions *repository.SessionRepository) *SessionService {
	return &SessionService{DB: db, Sessions: sessions, newCode: randomCode}
}

// randomCode draws a join code from SessionCodeAlphabet.
func randomCode() (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(util.SessionCodeAlphabet)))
	for i := 0; i < util.SessionCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(util.SessionCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

type CreateSessionInput struct {
	Strategies []string `json:"strategies"`
	Teachers   []string `json:"teachers"`
	Students   []string `json:"students"`
	Domains    []string `json:"domains"`
}

// Create registers a waiting session under a fresh join code.
func (s *SessionService) Create(ctx context.Context, in CreateSessionInput) (*model.SessionDetails, error) {
	strategies := compact(in.Strategies)
	if len(strategies) == 0 {
		return nil, fmt.Errorf("%w: strategies is required", util.ErrInvalidArgument)
	}

	ctx, span := tracing.Tracer.Start(ctx, "session.create")
	var details *model.SessionDetails
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Sessions.WithTx(tx)

		code, err := s.uniqueCode(repo)
		if err != nil {
			return err
		}

		session := &model.Session{
			Code:            code,
			Status:          model.SessionWaiting,
			ExecutedIndices: model.Ledger{}.String(),
		}
		if err := repo.Create(session, strategies, compact(in.Teachers), compact(in.Students), compact(in.Domains)); err != nil {
			return err
		}

		details, err = repo.Details(session.ID)
		return err
	})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("session created", zap.Uint("session_id", details.ID), zap.String("code", details.Code))
	return details, nil
}

func (s *SessionService) uniqueCode(repo *repository.SessionRepository) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return "", err
		}
		exists, err := repo.CodeExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.New("could not allocate a unique session code")
}

func compact(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func (s *SessionService) List(ctx context.Context) ([]model.SessionDetails, error) {
	repo := s.Sessions.WithTx(s.DB.WithContext(ctx))
	ids, err := repo.ListIDs()
	if err != nil {
		return nil, err
	}
	list := make([]model.SessionDetails, 0, len(ids))
	for _, id := range ids {
		d, err := repo.Details(id)
		if err != nil {
			return nil, err
		}
		list = append(list, *d)
	}
	return list, nil
}

func (s *SessionService) Details(ctx context.Context, id uint) (*model.SessionDetails, error) {
	return s.Sessions.WithTx(s.DB.WithContext(ctx)).Details(id)
}

type SessionStatusView struct {
	SessionID uint                `json:"session_id"`
	Status    model.SessionStatus `json:"status"`
}

func (s *SessionService) Status(ctx context.Context, id uint) (*SessionStatusView, error) {
	session, err := s.Sessions.WithTx(s.DB.WithContext(ctx)).FindByID(id)
	if err != nil {
		return nil, err
	}
	return &SessionStatusView{SessionID: session.ID, Status: session.Status}, nil
}

// Delete removes the session and all dependent rows in one transaction.
func (s *SessionService) Delete(ctx context.Context, id uint) error {
	ctx, span := tracing.Tracer.Start(ctx, "session.delete")
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.Sessions.WithTx(tx).Delete(id)
	})
	tracing.End(span, err)
	if err != nil {
		return err
	}
	logger.Log.Info("session deleted", zap.Uint("session_id", id))
	s.onDelete.run(ctx, id)
	return nil
}

type EnterResult struct {
	SessionID uint   `json:"session_id"`
	Code      string `json:"code"`
	Role      string `json:"role"`
}

// Enter enrolls the requester by join code. "student" joins the student list,
// any other type joins the teacher list. Re-entering is a no-op.
func (s *SessionService) Enter(ctx context.Context, code, requesterID, requesterType string) (*EnterResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	requesterID = strings.TrimSpace(requesterID)
	if code == "" || requesterID == "" {
		return nil, fmt.Errorf("%w: code and requester_id are required", util.ErrInvalidArgument)
	}

	role := util.RequesterTeacher
	if requesterType == util.RequesterStudent {
		role = util.RequesterStudent
	}

	var result *EnterResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Sessions.WithTx(tx)
		session, err := repo.FindByCode(code)
		if err != nil {
			return err
		}
		if role == util.RequesterStudent {
			err = repo.EnsureStudent(session.ID, requesterID)
		} else {
			err = repo.EnsureTeacher(session.ID, requesterID)
		}
		if err != nil {
			return err
		}
		result = &EnterResult{SessionID: session.ID, Code: session.Code, Role: role}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
