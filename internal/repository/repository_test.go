package repository

import (
	"testing"

	"session_control_backend/internal/model"
	"session_control_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSession(t *testing.T, db *gorm.DB) *model.Session {
	t.Helper()
	session := &model.Session{Code: "ABCD1234", Status: model.SessionWaiting, ExecutedIndices: "[]"}
	require.NoError(t, NewSessionRepository(db).Create(session, []string{"S1"}, nil, nil, nil))
	return session
}

func TestUpsertExtraNoteOverwritesWithoutLookup(t *testing.T) {
	db := testutil.NewDB(t)
	session := newSession(t, db)
	repo := NewSubmissionRepository(db)

	// two writers that both saw no existing note
	require.NoError(t, repo.UpsertExtraNote(&model.ExtraNote{SessionID: session.ID, StudentID: 7, StudentUsername: "ana", Value: 1.5}))
	require.NoError(t, repo.UpsertExtraNote(&model.ExtraNote{SessionID: session.ID, StudentID: 8, StudentUsername: "ana", Value: 2}))

	var notes []model.ExtraNote
	require.NoError(t, db.Where("session_id = ?", session.ID).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, 2.0, notes[0].Value)
	assert.Equal(t, 8, notes[0].StudentID)

	note, err := repo.FindExtraNote(session.ID, "ana")
	require.NoError(t, err)
	assert.Equal(t, notes[0].ID, note.ID)
}

func TestUpdateWithUnchangedValues(t *testing.T) {
	db := testutil.NewDB(t)
	session := newSession(t, db)
	repo := NewSessionRepository(db)

	fields := map[string]interface{}{"status": model.SessionFinished, "original_strategy_id": nil}
	require.NoError(t, repo.Update(session.ID, fields))
	require.NoError(t, repo.Update(session.ID, fields))

	got, err := repo.FindByID(session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionFinished, got.Status)
}
