package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	var calls atomic.Int32
	s := New()
	s.Register(Job{
		Name:     "count",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			calls.Add(1)
			return nil
		},
	})

	require.NoError(t, s.Run(context.Background(), "count"))
	require.NoError(t, s.Run(context.Background(), "count"))
	assert.EqualValues(t, 2, calls.Load())

	at, err := s.LastRun("count")
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.WithinDuration(t, time.Now(), *at, time.Minute)
}

func TestRunUnknownJob(t *testing.T) {
	s := New()
	assert.Error(t, s.Run(context.Background(), "nope"))
}

func TestRunRecordsError(t *testing.T) {
	boom := errors.New("boom")
	s := New()
	s.Register(Job{
		Name:     "fails",
		Interval: time.Hour,
		Fn:       func(ctx context.Context) error { return boom },
	})

	assert.ErrorIs(t, s.Run(context.Background(), "fails"), boom)

	_, err := s.LastRun("fails")
	assert.ErrorIs(t, err, boom)
}

func TestStartRunsOnInterval(t *testing.T) {
	var calls atomic.Int32
	s := New()
	s.Register(Job{
		Name:     "tick",
		Interval: 10 * time.Millisecond,
		Fn: func(ctx context.Context) error {
			calls.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	assert.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
}
