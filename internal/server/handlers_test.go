package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInclusiveDateEnd(t *testing.T) {
	day := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	end := inclusiveDateEnd(day)

	// The last sub-second instant of the day is still covered.
	lastTick := time.Date(2024, time.June, 10, 23, 59, 59, 500_000_000, time.UTC)
	assert.False(t, lastTick.After(end))

	// Midnight of the next day is not.
	nextDay := day.AddDate(0, 0, 1)
	assert.True(t, nextDay.After(end))
}

func TestParseDueDate(t *testing.T) {
	due, err := parseDueDate("")
	require.NoError(t, err)
	assert.Nil(t, due)

	due, err = parseDueDate("2024-06-10")
	require.NoError(t, err)
	require.NotNil(t, due)
	assert.Equal(t, 23, due.Hour())
	assert.Equal(t, 59, due.Minute())
	assert.Equal(t, 59, due.Second())

	due, err = parseDueDate("2024-06-10T15:00:00Z")
	require.NoError(t, err)
	require.NotNil(t, due)
	assert.Equal(t, 15, due.Hour())

	_, err = parseDueDate("next friday")
	assert.Error(t, err)
}
