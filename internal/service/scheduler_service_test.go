package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("09:30")
	require.NoError(t, err)
	assert.Equal(t, "0 30 9 * * *", spec)

	for _, bad := range []string{"9", "24:00", "10:61", "aa:bb"} {
		_, err := buildDailySpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestScheduleInterval(t *testing.T) {
	s := NewSchedulerService(time.UTC)

	_, err := s.ScheduleInterval(0, func() {})
	assert.Error(t, err)

	id, err := s.ScheduleInterval(time.Hour, func() {})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()
	next := s.Next(id)
	assert.WithinDuration(t, time.Now().Add(time.Hour), next, 5*time.Second)
}

func TestScheduledJobRuns(t *testing.T) {
	s := NewSchedulerService(time.UTC)
	done := make(chan struct{}, 1)
	_, err := s.ScheduleInterval(time.Second, func() {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestScheduleDaily(t *testing.T) {
	s := NewSchedulerService(time.UTC)

	_, err := s.ScheduleDaily("25:00", func() {})
	assert.Error(t, err)
	assert.Zero(t, s.Len())

	s.Start()
	defer s.Stop()
	id, err := s.ScheduleDaily("09:30", func() {})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	next := s.Next(id).UTC()
	assert.Equal(t, 9, next.Hour())
	assert.Equal(t, 30, next.Minute())
	assert.True(t, next.After(time.Now()))
	assert.WithinDuration(t, time.Now(), next, 24*time.Hour)
}
