package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"session_control_backend/internal/config"
	"session_control_backend/internal/model"
	"session_control_backend/internal/repository"
	"session_control_backend/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db          *gorm.DB
	sessionRepo *repository.SessionRepository
	answerRepo  *repository.SubmissionRepository
	ratingRepo  *repository.RatingRepository
	sessions    *SessionService
	progression *ProgressionService
	submissions *SubmissionService
	ratings     *RatingService
	clock       *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now advances by one second on every call so successive stamps differ.
func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)

	f := &fixture{
		db:          db,
		sessionRepo: repository.NewSessionRepository(db),
		answerRepo:  repository.NewSubmissionRepository(db),
		ratingRepo:  repository.NewRatingRepository(db),
		clock:       &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.sessions = NewSessionService(db, f.sessionRepo)
	f.progression = NewProgressionService(db, f.sessionRepo)
	f.progression.now = f.clock.Now
	f.submissions = NewSubmissionService(db, f.sessionRepo, f.answerRepo)
	f.ratings = NewRatingService(db, f.sessionRepo, f.ratingRepo)
	return f
}

func (f *fixture) agent(gen TextGenerator, storage *StorageService) *AgentService {
	return NewAgentService(f.db, f.sessionRepo, f.answerRepo, f.ratingRepo, gen, storage, nil, config.AgentConfig{Placeholder: "Análise indisponível"})
}

func (f *fixture) createSession(t *testing.T, strategy string) uint {
	t.Helper()
	details, err := f.sessions.Create(context.Background(), CreateSessionInput{
		Strategies: []string{strategy},
		Teachers:   []string{"t1"},
		Students:   []string{"s1", "s2"},
		Domains:    []string{"d1"},
	})
	require.NoError(t, err)
	return details.ID
}

func (f *fixture) details(t *testing.T, id uint) *model.SessionDetails {
	t.Helper()
	d, err := f.sessions.Details(context.Background(), id)
	require.NoError(t, err)
	return d
}

type stubGenerator struct {
	text    string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.text, g.err
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
