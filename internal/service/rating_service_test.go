package service

import (
	"context"
	"testing"

	"session_control_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateAggregates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createSession(t, "S1")

	view, err := f.ratings.Get(ctx, id, "")
	require.NoError(t, err)
	assert.Zero(t, view.RatingAverage)
	assert.Zero(t, view.RatingCount)

	for student, r := range map[string]int{"a": 3, "b": 4, "c": 5} {
		_, err := f.ratings.Rate(ctx, id, student, r)
		require.NoError(t, err)
	}

	view, err = f.ratings.Get(ctx, id, "")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, view.RatingAverage, 1e-9)
	assert.Equal(t, 3, view.RatingCount)

	// re-rating replaces the student's previous value
	view, err = f.ratings.Rate(ctx, id, "a", 5)
	require.NoError(t, err)
	assert.InDelta(t, 14.0/3.0, view.RatingAverage, 1e-9)
	assert.Equal(t, 3, view.RatingCount)

	stored := f.details(t, id)
	assert.InDelta(t, 14.0/3.0, stored.RatingAverage, 1e-9)
	assert.Equal(t, 3, stored.RatingCount)
}

func TestRateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createSession(t, "S1")

	for _, r := range []int{0, 6, -1} {
		_, err := f.ratings.Rate(ctx, id, "a", r)
		assert.ErrorIs(t, err, util.ErrInvalidArgument)
	}
	_, err := f.ratings.Rate(ctx, id, "", 3)
	assert.ErrorIs(t, err, util.ErrInvalidArgument)

	_, err = f.ratings.Rate(ctx, 999, "a", 3)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestGetRatingWithStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createSession(t, "S1")
	_, err := f.ratings.Rate(ctx, id, "a", 2)
	require.NoError(t, err)

	view, err := f.ratings.Get(ctx, id, "a")
	require.NoError(t, err)
	require.NotNil(t, view.StudentRating)
	assert.Equal(t, 2, *view.StudentRating)

	view, err = f.ratings.Get(ctx, id, "b")
	require.NoError(t, err)
	assert.Nil(t, view.StudentRating)

	_, err = f.ratings.Get(ctx, 999, "a")
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}
