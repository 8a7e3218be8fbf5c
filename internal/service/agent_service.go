package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"session_control_backend/internal/config"
	"session_control_backend/internal/repository"
	"session_control_backend/internal/util"
	"session_control_backend/pkg/logger"
	"session_control_backend/pkg/monitoring"
	"session_control_backend/pkg/tracing"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const summaryCacheKeyPrefix = "session:agent_summary:"

// AgentService builds the language-model views over session data: the class
// summary, a student's grade history and the exported report.
type AgentService struct {
	DB          *gorm.DB
	Sessions    *repository.SessionRepository
	Submissions *repository.SubmissionRepository
	Ratings     *repository.RatingRepository
	Generator   TextGenerator
	Storage     *StorageService
	Redis       *redis.Client
	Cfg         config.AgentConfig
	now         func() time.Time
}

func NewAgentService(
	db *gorm.DB,
	sessions *repository.SessionRepository,
	submissions *repository.SubmissionRepository,
	ratings *repository.RatingRepository,
	generator TextGenerator,
	storage *StorageService,
	rdb *redis.Client,
	cfg config.AgentConfig,
) *AgentService {
	return &AgentService{
		DB:          db,
		Sessions:    sessions,
		Submissions: submissions,
		Ratings:     ratings,
		Generator:   generator,
		Storage:     storage,
		Redis:       rdb,
		Cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type SummaryMetrics struct {
	ExerciseAvg        float64 `json:"exercise_avg"`
	ExtraAvg           float64 `json:"extra_avg"`
	ParticipationCount int     `json:"participation_count"`
}

type AgentSummary struct {
	SessionID uint           `json:"session_id"`
	Status    string         `json:"status"`
	Summary   string         `json:"summary"`
	Metrics   SummaryMetrics `json:"metrics"`
}

func (s *AgentService) placeholder() string {
	if s.Cfg.Placeholder != "" {
		return s.Cfg.Placeholder
	}
	return "Análise indisponível"
}

// generate never fails: any generator error is logged and replaced by the
// placeholder text.
func (s *AgentService) generate(ctx context.Context, prompt string) string {
	if s.Generator == nil {
		return s.placeholder()
	}
	text, err := s.Generator.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		if !errors.Is(err, ErrGeneratorDisabled) {
			monitoring.TextGenerationFailures.Inc()
			logger.Log.Warn("text generation failed", zap.Error(err))
		}
		return s.placeholder()
	}
	return text
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func average[T int | float64](values []T) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	return sum / float64(len(values))
}

// Summary reports class-level metrics for a session plus a short narrative.
func (s *AgentService) Summary(ctx context.Context, id uint) (*AgentSummary, error) {
	if cached := s.cachedSummary(ctx, id); cached != nil {
		return cached, nil
	}

	ctx, span := tracing.Tracer.Start(ctx, "agent.summary")
	defer span.End()

	db := s.DB.WithContext(ctx)
	sessions := s.Sessions.WithTx(db)
	submissions := s.Submissions.WithTx(db)

	session, err := sessions.FindByID(id)
	if err != nil {
		return nil, err
	}
	totalStrategies, err := sessions.CountStrategies(id)
	if err != nil {
		return nil, err
	}
	scores, err := submissions.AnswerScores(id)
	if err != nil {
		return nil, err
	}
	extras, err := submissions.ExtraNoteValues(id)
	if err != nil {
		return nil, err
	}

	exerciseAvg := average(scores)
	extraAvg := average(extras)

	prompt := fmt.Sprintf(`Atue como o 'Agente de Memória' de uma plataforma de ensino.
Analise o estado geral desta Sessão de Ensino (ID %d) para orientar o Orquestrador.
Não cite alunos. Foque na eficácia das estratégias e no desempenho da turma como um todo.

DADOS DA SESSÃO:
- Status: %s
- Início: %s
- Tática atual: %d
- Progresso do Plano: %d estratégias vinculadas.
- Avaliação Média da Turma: %.1f estrelas (%d votos).

DESEMPENHO NOS EXERCÍCIOS OBRIGATÓRIOS:
- Quantidade de respostas: %d
- Média Geral: %.1f / 10
- Distribuição das Notas: %v

DESEMPENHO NAS ATIVIDADES EXTRAS (BÔNUS):
- Quantidade de entregas: %d
- Média Geral: %.1f
- Notas: %v

OBJETIVO:
Gere um resumo narrativo curto (2-3 frases) respondendo:
1. O conteúdo obrigatório está sendo bem assimilado pela maioria?
2. Existe interesse/adesão ao conteúdo extra?
3. A sessão parece fluir bem ou está estagnada (poucas respostas)?`,
		id, session.Status, formatTime(session.StartTime), session.CurrentTacticIndex, totalStrategies,
		session.RatingAverage, session.RatingCount,
		len(scores), exerciseAvg, scores,
		len(extras), extraAvg, extras,
	)

	summary := &AgentSummary{
		SessionID: id,
		Status:    string(session.Status),
		Summary:   s.generate(ctx, prompt),
		Metrics: SummaryMetrics{
			ExerciseAvg:        round2(exerciseAvg),
			ExtraAvg:           round2(extraAvg),
			ParticipationCount: len(scores) + len(extras),
		},
	}

	if summary.Summary != s.placeholder() {
		s.cacheSummary(ctx, summary)
	}
	return summary, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "não iniciada"
	}
	return t.Format(util.TimeFormat)
}

func (s *AgentService) cachedSummary(ctx context.Context, id uint) *AgentSummary {
	if s.Redis == nil {
		return nil
	}
	val, err := s.Redis.Get(ctx, summaryCacheKeyPrefix+strconv.FormatUint(uint64(id), 10)).Result()
	if err == redis.Nil {
		return nil
	} else if err != nil {
		logger.Log.Warn("summary cache read failed", zap.Error(err))
		return nil
	}
	var summary AgentSummary
	if err := json.Unmarshal([]byte(val), &summary); err != nil {
		return nil
	}
	return &summary
}

func (s *AgentService) cacheSummary(ctx context.Context, summary *AgentSummary) {
	if s.Redis == nil || s.Cfg.SummaryCacheTTL <= 0 {
		return
	}
	data, _ := json.Marshal(summary)
	key := summaryCacheKeyPrefix + strconv.FormatUint(uint64(summary.SessionID), 10)
	if err := s.Redis.Set(ctx, key, data, s.Cfg.SummaryCacheTTL).Err(); err != nil {
		logger.Log.Warn("summary cache write failed", zap.Error(err))
	}
}

// InvalidateSummary drops the cached summary of a session.
func (s *AgentService) InvalidateSummary(ctx context.Context, id uint) {
	if s.Redis == nil {
		return
	}
	s.Redis.Del(ctx, summaryCacheKeyPrefix+strconv.FormatUint(uint64(id), 10))
}

type SessionGrades struct {
	Notes         []int     `json:"notes"`
	ExtraNotes    []float64 `json:"extra_notes"`
	StudentRating *int      `json:"student_rating,omitempty"`
}

type GradesHistory struct {
	StudentPerformanceSummary string                    `json:"student_performance_summary"`
	RawHistoryBySession       map[string]*SessionGrades `json:"raw_history_by_session"`
}

// GradesHistory groups a student's scores, extra notes and ratings by session.
// Extra notes are keyed by a numeric student id, so a non-numeric id has none.
func (s *AgentService) GradesHistory(ctx context.Context, studentID string) (*GradesHistory, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, fmt.Errorf("%w: student id is required", util.ErrInvalidArgument)
	}

	ctx, span := tracing.Tracer.Start(ctx, "agent.grades_history")
	defer span.End()

	db := s.DB.WithContext(ctx)
	submissions := s.Submissions.WithTx(db)
	history := map[string]*SessionGrades{}
	entry := func(sessionID uint) *SessionGrades {
		key := strconv.FormatUint(uint64(sessionID), 10)
		g, ok := history[key]
		if !ok {
			g = &SessionGrades{Notes: []int{}, ExtraNotes: []float64{}}
			history[key] = g
		}
		return g
	}

	answers, err := submissions.AnswersByStudent(studentID)
	if err != nil {
		return nil, err
	}
	for _, a := range answers {
		g := entry(a.SessionID)
		g.Notes = append(g.Notes, a.Score)
	}

	if numericID, convErr := strconv.Atoi(studentID); convErr == nil {
		notes, err := submissions.ExtraNotesByStudent(numericID)
		if err != nil {
			return nil, err
		}
		for _, n := range notes {
			g := entry(n.SessionID)
			g.ExtraNotes = append(g.ExtraNotes, n.Value)
		}
	}

	ratings, err := s.Ratings.WithTx(db).RatingsByStudent(studentID)
	if err != nil {
		return nil, err
	}
	for _, r := range ratings {
		rating := r.Rating
		entry(r.SessionID).StudentRating = &rating
	}

	raw, _ := json.Marshal(history)
	prompt := fmt.Sprintf(`Você é um analista de desempenho escolar.
Analise as notas e identifique tendências (melhora, piora, estagnação) e pontos de atenção.

Dados brutos (Sessão -> Notas):
%s

Responda com um parágrafo conciso.`, raw)

	return &GradesHistory{
		StudentPerformanceSummary: s.generate(ctx, prompt),
		RawHistoryBySession:       history,
	}, nil
}

type ExportResult struct {
	SessionID  uint      `json:"session_id"`
	Key        string    `json:"key"`
	URL        string    `json:"url"`
	ExportedAt time.Time `json:"exported_at"`
}

func reportKey(id uint) string {
	return fmt.Sprintf("reports/session-%d.json", id)
}

// ExportReport writes the session details as JSON to the configured object
// store. A later export of the same session replaces the object.
func (s *AgentService) ExportReport(ctx context.Context, id uint) (*ExportResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "agent.export_report")
	var err error
	defer func() { tracing.End(span, err) }()

	details, err := s.Sessions.WithTx(s.DB.WithContext(ctx)).Details(id)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(details, "", "  ")
	if err != nil {
		return nil, err
	}

	now := s.now()
	key := reportKey(id)
	url, err := s.Storage.PutBytes(ctx, key, data, util.MimeJSON)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("session report exported", zap.Uint("session_id", id), zap.String("key", key))
	return &ExportResult{SessionID: id, Key: key, URL: url, ExportedAt: now}, nil
}

// RemoveReport deletes the exported report of a session, if there is one.
func (s *AgentService) RemoveReport(ctx context.Context, id uint) {
	if s.Storage == nil {
		return
	}
	if err := s.Storage.Delete(ctx, reportKey(id)); err != nil {
		logger.Log.Warn("report cleanup failed", zap.Uint("session_id", id), zap.Error(err))
	}
}
