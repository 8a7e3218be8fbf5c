package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"session_control_backend/internal/config"
	"session_control_backend/internal/model"
	"session_control_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedScores(t *testing.T, f *fixture, id uint) {
	t.Helper()
	ctx := context.Background()
	for student, score := range map[string]int{"s1": 10, "s2": 5} {
		_, err := f.submissions.SubmitAnswer(ctx, SubmitAnswerInput{SessionID: id, StudentID: student, Score: score})
		require.NoError(t, err)
	}
	for user, v := range map[string]float64{"ana": 9.5, "bia": 8.0} {
		_, _, err := f.submissions.AddExtraNote(ctx, ExtraNoteInput{SessionID: id, Username: user, Value: v})
		require.NoError(t, err)
	}
}

func TestSummaryFallsBackToPlaceholder(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t, "S1")
	seedScores(t, f, id)

	gen := &stubGenerator{err: errors.New("upstream down")}
	summary, err := f.agent(gen, nil).Summary(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, "Análise indisponível", summary.Summary)
	assert.Equal(t, string(model.SessionWaiting), summary.Status)
	assert.InDelta(t, 7.5, summary.Metrics.ExerciseAvg, 1e-9)
	assert.InDelta(t, 8.75, summary.Metrics.ExtraAvg, 1e-9)
	assert.Equal(t, 4, summary.Metrics.ParticipationCount)
}

func TestSummaryUsesGeneratedText(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t, "S1")
	seedScores(t, f, id)

	gen := &stubGenerator{text: "A turma vai bem."}
	summary, err := f.agent(gen, nil).Summary(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, "A turma vai bem.", summary.Summary)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "1 estratégias vinculadas")
	assert.Contains(t, gen.prompts[0], "Quantidade de respostas: 2")
}

func TestSummaryWithoutDataOrGenerator(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t, "S1")

	summary, err := f.agent(nil, nil).Summary(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Análise indisponível", summary.Summary)
	assert.Zero(t, summary.Metrics.ExerciseAvg)
	assert.Zero(t, summary.Metrics.ParticipationCount)

	_, err = f.agent(nil, nil).Summary(context.Background(), 999)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestGradesHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createSession(t, "S1")
	b := f.createSession(t, "S2")

	_, err := f.submissions.SubmitAnswer(ctx, SubmitAnswerInput{SessionID: a, StudentID: "7", Score: 6})
	require.NoError(t, err)
	_, err = f.submissions.SubmitAnswer(ctx, SubmitAnswerInput{SessionID: b, StudentID: "7", Score: 9})
	require.NoError(t, err)
	_, _, err = f.submissions.AddExtraNote(ctx, ExtraNoteInput{SessionID: b, StudentID: 7, Username: "ana", Value: 1.5})
	require.NoError(t, err)
	_, err = f.ratings.Rate(ctx, a, "7", 4)
	require.NoError(t, err)

	gen := &stubGenerator{err: errors.New("boom")}
	history, err := f.agent(gen, nil).GradesHistory(ctx, "7")
	require.NoError(t, err)

	assert.Equal(t, "Análise indisponível", history.StudentPerformanceSummary)
	require.Len(t, history.RawHistoryBySession, 2)

	ga := history.RawHistoryBySession[formatID(a)]
	require.NotNil(t, ga)
	assert.Equal(t, []int{6}, ga.Notes)
	assert.Empty(t, ga.ExtraNotes)
	require.NotNil(t, ga.StudentRating)
	assert.Equal(t, 4, *ga.StudentRating)

	gb := history.RawHistoryBySession[formatID(b)]
	require.NotNil(t, gb)
	assert.Equal(t, []int{9}, gb.Notes)
	assert.Equal(t, []float64{1.5}, gb.ExtraNotes)
	assert.Nil(t, gb.StudentRating)

	require.Len(t, gen.prompts, 1)
	assert.True(t, strings.Contains(gen.prompts[0], `"notes":[6]`))
}

func TestGradesHistoryNonNumericStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createSession(t, "S1")
	_, _, err := f.submissions.AddExtraNote(ctx, ExtraNoteInput{SessionID: id, StudentID: 0, Username: "ana", Value: 2})
	require.NoError(t, err)

	history, err := f.agent(nil, nil).GradesHistory(ctx, "ana")
	require.NoError(t, err)
	assert.Empty(t, history.RawHistoryBySession)

	_, err = f.agent(nil, nil).GradesHistory(ctx, " ")
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
}

func TestExportReportWritesLocalObject(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t, "S1")
	dir := t.TempDir()
	storage := NewStorageService(&config.StorageConfig{Type: util.StorageLocal, LocalPath: dir})

	res, err := f.agent(nil, storage).ExportReport(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.URL, "/uploads/reports/"))
	assert.Equal(t, "reports/session-"+formatID(id)+".json", res.Key)

	again, err := f.agent(nil, storage).ExportReport(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, res.Key, again.Key)

	raw, err := os.ReadFile(filepath.Join(dir, res.Key))
	require.NoError(t, err)
	var details model.SessionDetails
	require.NoError(t, json.Unmarshal(raw, &details))
	assert.Equal(t, id, details.ID)
	assert.Equal(t, []string{"S1"}, details.Strategies)

	_, err = f.agent(nil, storage).ExportReport(context.Background(), 999)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}
