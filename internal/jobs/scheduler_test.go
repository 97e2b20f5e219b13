package jobs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spst-logistics/spst-api/internal/jobs"
)

func TestSchedulerAcceptsStandardExpressions(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())

	require.NoError(t, s.AddJob("tracking-sync", "*/15 * * * *", func() {}))
	require.NoError(t, s.AddJob("pickup-reminders", "0 7 * * *", func() {}))
	require.NoError(t, s.AddJob("nightly", "@daily", func() {}))
}

func TestSchedulerRejectsDuplicatesAndBadSpecs(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())

	require.NoError(t, s.AddJob("tracking-sync", "*/15 * * * *", func() {}))
	err := s.AddJob("tracking-sync", "*/30 * * * *", func() {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	assert.Error(t, s.AddJob("broken", "not a cron spec", func() {}))
}
