package service

import (
	"context"
	"strings"
	"testing"

	"session_control_backend/internal/model"
	"session_control_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession(t *testing.T) {
	f := newFixture(t)

	d, err := f.sessions.Create(context.Background(), CreateSessionInput{
		Strategies: []string{"S1"},
		Teachers:   []string{"t1"},
		Students:   []string{"s1", " ", "s2"},
		Domains:    []string{"d1"},
	})
	require.NoError(t, err)

	assert.Len(t, d.Code, util.SessionCodeLength)
	for _, r := range d.Code {
		assert.True(t, strings.ContainsRune(util.SessionCodeAlphabet, r), "unexpected rune %q", r)
	}
	assert.Equal(t, model.SessionWaiting, d.Status)
	assert.Equal(t, 0, d.CurrentTacticIndex)
	assert.Empty(t, d.ExecutedIndices)
	assert.Equal(t, []string{"S1"}, d.Strategies)
	assert.Equal(t, []string{"t1"}, d.Teachers)
	assert.Equal(t, []string{"s1", "s2"}, d.Students)
	assert.Equal(t, []string{"d1"}, d.Domains)
	assert.Empty(t, d.VerifiedAnswers)
	assert.Empty(t, d.ExtraNotes)
}

func TestCreateSessionRequiresStrategy(t *testing.T) {
	f := newFixture(t)
	_, err := f.sessions.Create(context.Background(), CreateSessionInput{Strategies: []string{""}})
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
}

func TestCreateSessionRetriesCodeCollision(t *testing.T) {
	f := newFixture(t)
	codes := []string{"AAAAAAAA", "AAAAAAAA", "BBBBBBBB"}
	f.sessions.newCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	first, err := f.sessions.Create(context.Background(), CreateSessionInput{Strategies: []string{"S1"}})
	require.NoError(t, err)
	second, err := f.sessions.Create(context.Background(), CreateSessionInput{Strategies: []string{"S1"}})
	require.NoError(t, err)

	assert.Equal(t, "AAAAAAAA", first.Code)
	assert.Equal(t, "BBBBBBBB", second.Code)
}

func TestCreateSessionGivesUpWhenCodesExhausted(t *testing.T) {
	f := newFixture(t)
	f.sessions.newCode = func() (string, error) { return "ZZZZZZZZ", nil }

	_, err := f.sessions.Create(context.Background(), CreateSessionInput{Strategies: []string{"S1"}})
	require.NoError(t, err)
	_, err = f.sessions.Create(context.Background(), CreateSessionInput{Strategies: []string{"S1"}})
	assert.Error(t, err)
}

func TestDetailsToleratesCorruptLedger(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t, "S1")
	require.NoError(t, f.sessionRepo.Update(id, map[string]interface{}{"executed_indices": "[1,2"}))

	d := f.details(t, id)
	assert.NotNil(t, d.ExecutedIndices)
	assert.Empty(t, d.ExecutedIndices)
}

func TestDetailsUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.sessions.Details(context.Background(), 42)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
	_, err = f.sessions.Status(context.Background(), 42)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestListAndStatus(t *testing.T) {
	f := newFixture(t)
	a := f.createSession(t, "S1")
	b := f.createSession(t, "S2")

	list, err := f.sessions.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a, list[0].ID)
	assert.Equal(t, b, list[1].ID)
	assert.Equal(t, []string{"S2"}, list[1].Strategies)

	st, err := f.sessions.Status(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, model.SessionWaiting, st.Status)
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createSession(t, "S1")
	keep := f.createSession(t, "S2")

	_, err := f.submissions.SubmitAnswer(ctx, SubmitAnswerInput{SessionID: id, StudentID: "s1", Score: 7})
	require.NoError(t, err)
	_, _, err = f.submissions.AddExtraNote(ctx, ExtraNoteInput{SessionID: id, StudentID: 1, Username: "ana", Value: 1.5})
	require.NoError(t, err)
	_, err = f.ratings.Rate(ctx, id, "s1", 4)
	require.NoError(t, err)

	require.NoError(t, f.sessions.Delete(ctx, id))

	_, err = f.sessions.Details(ctx, id)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)

	for _, m := range []interface{}{
		&model.SessionStrategy{}, &model.SessionTeacher{}, &model.SessionStudent{}, &model.SessionDomain{},
		&model.VerifiedAnswer{}, &model.ExtraNote{}, &model.SessionRating{},
	} {
		var count int64
		require.NoError(t, f.db.Model(m).Where("session_id = ?", id).Count(&count).Error)
		assert.Zero(t, count, "%T rows left behind", m)
	}

	assert.Equal(t, []string{"S2"}, f.details(t, keep).Strategies)
	assert.ErrorIs(t, f.sessions.Delete(ctx, id), util.ErrSessionNotFound)
}

func TestEnterSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createSession(t, "S1")
	code := f.details(t, id).Code

	res, err := f.sessions.Enter(ctx, code, "s9", util.RequesterStudent)
	require.NoError(t, err)
	assert.Equal(t, id, res.SessionID)
	assert.Equal(t, util.RequesterStudent, res.Role)

	_, err = f.sessions.Enter(ctx, strings.ToLower(code), "s9", util.RequesterStudent)
	require.NoError(t, err)

	res, err = f.sessions.Enter(ctx, code, "t7", "observer")
	require.NoError(t, err)
	assert.Equal(t, util.RequesterTeacher, res.Role)

	d := f.details(t, id)
	assert.Equal(t, []string{"s1", "s2", "s9"}, d.Students)
	assert.Equal(t, []string{"t1", "t7"}, d.Teachers)

	_, err = f.sessions.Enter(ctx, "NOPE0000", "s9", util.RequesterStudent)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
	_, err = f.sessions.Enter(ctx, code, "", util.RequesterStudent)
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
}
