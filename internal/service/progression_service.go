package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"session_control_backend/internal/model"
	"session_control_backend/internal/repository"
	"session_control_backend/internal/util"
	"session_control_backend/pkg/logger"
	"session_control_backend/pkg/monitoring"
	"session_control_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressionService is the session state machine:
// aguardando -> in-progress -> finished.
//
// Every operation runs in one transaction holding a row lock on the session,
// so concurrent cursor moves on the same session are applied one after another.
type ProgressionService struct {
	DB       *gorm.DB
	Sessions *repository.SessionRepository
	now      func() time.Time
	hooks    commitHooks
}

// RegisterCommitHook adds fn to the hooks run after every committed operation.
func (s *ProgressionService) RegisterCommitHook(fn CommitHook) {
	s.hooks.add(fn)
}

func NewProgressionService(db *gorm.DB, sessions *repository.SessionRepository) *ProgressionService {
	return &ProgressionService{
		DB:       db,
		Sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type StartResult struct {
	SessionID uint                `json:"session_id"`
	Status    model.SessionStatus `json:"status"`
	StartTime time.Time           `json:"start_time"`
	UseAgent  bool                `json:"use_agent"`
}

// TacticResult is the snapshot returned by cursor operations. EndedByRule is
// set when an armed end flag turned an advance into an end.
type TacticResult struct {
	SessionID          uint                `json:"session_id"`
	CurrentTacticIndex int                 `json:"current_tactic_index"`
	SessionStatus      model.SessionStatus `json:"session_status"`
	EndedByRule        bool                `json:"ended_by_rule,omitempty"`
}

func (s *ProgressionService) inSession(ctx context.Context, op string, id uint, fn func(repo *repository.SessionRepository, session *model.Session) error) error {
	ctx, span := tracing.Tracer.Start(ctx, "progression."+op,
		trace.WithAttributes(attribute.Int64("session.id", int64(id))))

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Sessions.WithTx(tx)
		session, err := repo.FindByIDForUpdate(id)
		if err != nil {
			return err
		}
		return fn(repo, session)
	})
	tracing.End(span, err)

	if err != nil {
		return err
	}
	monitoring.SessionTransitions.WithLabelValues(op).Inc()
	logger.Log.Debug("session transition", zap.String("op", op), zap.Uint("session_id", id))
	s.hooks.run(ctx, id)
	return nil
}

// resetRun is the column set shared by start, swaps and permanent changes.
func resetRun(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"current_tactic_index":      0,
		"current_tactic_started_at": now,
		"end_on_next_completion":    false,
		"executed_indices":          model.Ledger{}.String(),
	}
}

// Start moves the session to in-progress and clears all run state. A finished
// session cannot be started again.
func (s *ProgressionService) Start(ctx context.Context, id uint, useAgent bool) (*StartResult, error) {
	now := s.now()
	err := s.inSession(ctx, "start", id, func(repo *repository.SessionRepository, session *model.Session) error {
		if session.Status == model.SessionFinished {
			return util.ErrSessionFinished
		}
		fields := resetRun(now)
		fields["status"] = model.SessionInProgress
		fields["start_time"] = now
		fields["use_agent"] = useAgent
		return repo.Update(id, fields)
	})
	if err != nil {
		return nil, err
	}
	return &StartResult{SessionID: id, Status: model.SessionInProgress, StartTime: now, UseAgent: useAgent}, nil
}

// Advance finishes the current tactic. When the end flag is armed the session
// is ended instead and the cursor stays where it is.
func (s *ProgressionService) Advance(ctx context.Context, id uint) (*TacticResult, error) {
	var result *TacticResult
	op := "advance"
	err := s.inSession(ctx, op, id, func(repo *repository.SessionRepository, session *model.Session) error {
		if session.EndOnNextCompletion {
			if err := s.endLocked(repo, session); err != nil {
				return err
			}
			result = &TacticResult{
				SessionID:          id,
				CurrentTacticIndex: session.CurrentTacticIndex,
				SessionStatus:      model.SessionFinished,
				EndedByRule:        true,
			}
			return nil
		}
		if session.Status == model.SessionFinished {
			return util.ErrSessionFinished
		}

		next := session.CurrentTacticIndex + 1
		if err := s.moveCursor(repo, session, next); err != nil {
			return err
		}
		result = &TacticResult{SessionID: id, CurrentTacticIndex: next, SessionStatus: session.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.EndedByRule {
		monitoring.SessionTransitions.WithLabelValues("end_by_rule").Inc()
	}
	return result, nil
}

// Rewind steps back one tactic, clamped at 0. The ledger is not touched.
func (s *ProgressionService) Rewind(ctx context.Context, id uint) (*TacticResult, error) {
	var result *TacticResult
	err := s.inSession(ctx, "rewind", id, func(repo *repository.SessionRepository, session *model.Session) error {
		if session.Status == model.SessionFinished {
			return util.ErrSessionFinished
		}
		prev := session.CurrentTacticIndex - 1
		if prev < 0 {
			prev = 0
		}
		if err := repo.Update(id, map[string]interface{}{
			"current_tactic_index":      prev,
			"current_tactic_started_at": s.now(),
		}); err != nil {
			return err
		}
		result = &TacticResult{SessionID: id, CurrentTacticIndex: prev, SessionStatus: session.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetIndex jumps to an arbitrary tactic. The index is not checked against the
// strategy length, which this service does not know.
func (s *ProgressionService) SetIndex(ctx context.Context, id uint, index *int) (*TacticResult, error) {
	if index == nil {
		return nil, fmt.Errorf("%w: tactic_index is required", util.ErrInvalidArgument)
	}
	if *index < 0 {
		return nil, fmt.Errorf("%w: tactic_index must be >= 0", util.ErrInvalidArgument)
	}

	var result *TacticResult
	err := s.inSession(ctx, "set_index", id, func(repo *repository.SessionRepository, session *model.Session) error {
		if session.Status == model.SessionFinished {
			return util.ErrSessionFinished
		}
		if err := s.moveCursor(repo, session, *index); err != nil {
			return err
		}
		result = &TacticResult{SessionID: id, CurrentTacticIndex: *index, SessionStatus: session.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// moveCursor records the tactic being left and the one being entered, then
// moves the cursor. Consecutive duplicates collapse, so the ledger always ends
// with the new cursor.
func (s *ProgressionService) moveCursor(repo *repository.SessionRepository, session *model.Session, to int) error {
	ledger := model.ParseLedger(session.ExecutedIndices).
		Record(session.CurrentTacticIndex).
		Record(to)

	return repo.Update(session.ID, map[string]interface{}{
		"current_tactic_index":      to,
		"current_tactic_started_at": s.now(),
		"executed_indices":          ledger.String(),
	})
}

// ScheduleEnd arms the one-shot flag consumed by the next Advance.
func (s *ProgressionService) ScheduleEnd(ctx context.Context, id uint) error {
	return s.inSession(ctx, "schedule_end", id, func(repo *repository.SessionRepository, session *model.Session) error {
		if session.EndOnNextCompletion {
			return nil
		}
		return repo.Update(id, map[string]interface{}{"end_on_next_completion": true})
	})
}

// SwapStrategyTemporary replaces the active strategy while remembering the
// original one, which End restores. Status and start_time are untouched.
func (s *ProgressionService) SwapStrategyTemporary(ctx context.Context, id uint, strategyID string) error {
	strategyID = strings.TrimSpace(strategyID)
	if strategyID == "" {
		return fmt.Errorf("%w: strategy_id is required", util.ErrInvalidArgument)
	}

	return s.inSession(ctx, "swap_strategy", id, func(repo *repository.SessionRepository, session *model.Session) error {
		if session.Status == model.SessionFinished {
			return util.ErrSessionFinished
		}

		fields := resetRun(s.now())
		if session.OriginalStrategyID == nil {
			current, err := repo.StrategyIDs(id)
			if err != nil {
				return err
			}
			if len(current) > 0 {
				fields["original_strategy_id"] = current[0]
			}
		}

		if err := repo.ReplaceStrategies(id, strategyID); err != nil {
			return err
		}
		return repo.Update(id, fields)
	})
}

// ChangeStrategy permanently replaces the strategy and restarts the session.
// Verified answers are purged because they were scored against the old plan.
func (s *ProgressionService) ChangeStrategy(ctx context.Context, id uint, strategyID string) error {
	strategyID = strings.TrimSpace(strategyID)
	if strategyID == "" {
		return fmt.Errorf("%w: strategy_id is required", util.ErrInvalidArgument)
	}
	return s.inSession(ctx, "change_strategy", id, func(repo *repository.SessionRepository, session *model.Session) error {
		if session.Status == model.SessionFinished {
			return util.ErrSessionFinished
		}
		if err := repo.ReplaceStrategies(id, strategyID); err != nil {
			return err
		}
		return s.restart(repo, id)
	})
}

// ChangeDomain permanently replaces the domain and restarts the session.
func (s *ProgressionService) ChangeDomain(ctx context.Context, id uint, domainID string) error {
	domainID = strings.TrimSpace(domainID)
	if domainID == "" {
		return fmt.Errorf("%w: domain_id is required", util.ErrInvalidArgument)
	}
	return s.inSession(ctx, "change_domain", id, func(repo *repository.SessionRepository, session *model.Session) error {
		if session.Status == model.SessionFinished {
			return util.ErrSessionFinished
		}
		if err := repo.ReplaceDomains(id, domainID); err != nil {
			return err
		}
		return s.restart(repo, id)
	})
}

func (s *ProgressionService) restart(repo *repository.SessionRepository, id uint) error {
	if err := repo.DeleteVerifiedAnswers(id); err != nil {
		return err
	}
	now := s.now()
	fields := resetRun(now)
	fields["status"] = model.SessionInProgress
	fields["start_time"] = now
	return repo.Update(id, fields)
}

// End finishes the session, restoring the original strategy if a temporary
// swap is active. Ending a finished session succeeds without changes.
func (s *ProgressionService) End(ctx context.Context, id uint) error {
	return s.inSession(ctx, "end", id, func(repo *repository.SessionRepository, session *model.Session) error {
		return s.endLocked(repo, session)
	})
}

func (s *ProgressionService) endLocked(repo *repository.SessionRepository, session *model.Session) error {
	fields := map[string]interface{}{"status": model.SessionFinished}
	if session.OriginalStrategyID != nil && *session.OriginalStrategyID != "" {
		if err := repo.ReplaceStrategies(session.ID, *session.OriginalStrategyID); err != nil {
			return err
		}
		fields["original_strategy_id"] = nil
	}
	return repo.Update(session.ID, fields)
}
