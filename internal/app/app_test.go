package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/taskpilot/internal/model"
	"github.com/nhle/taskpilot/tests/testutil"
)

func testConfig(t *testing.T) *model.AppConfig {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "data", "tasks.db")
	cfg.AI.Enabled = false
	cfg.Calendar.Enabled = false
	return cfg
}

func TestNew_PersistsAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := New(ctx, cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)

	deadline := time.Now().UTC().Add(2 * time.Hour)
	added, err := a.Tasks.AddTask(ctx, model.Task{Title: "Submit report", Deadline: &deadline})
	require.NoError(t, err)
	assert.Empty(t, added.CalendarEventID, "calendar sync is off")
	assert.Len(t, added.ReminderIDs, 2)
	require.NoError(t, a.Close())

	b, err := New(ctx, cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	loaded, ok := b.Tasks.GetTask(added.ID)
	require.True(t, ok)
	assert.Equal(t, "Submit report", loaded.Title)
	assert.Equal(t, added.ReminderIDs, loaded.ReminderIDs)

	reminders, err := b.Store.GetRemindersForTask(ctx, added.ID)
	require.NoError(t, err)
	assert.Len(t, reminders, 2)
}

func TestNew_AssistantObservesChanges(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Empty(t, a.Assistant.Recommendations())

	_, err = a.Tasks.AddTask(ctx, model.Task{Title: "Plan sprint", Priority: model.PriorityHigh})
	require.NoError(t, err)

	recs := a.Assistant.Recommendations()
	require.NotEmpty(t, recs)
	assert.Equal(t, model.CategoryScheduling, recs[len(recs)-1].Category)
}

func TestNew_RefreshAfterLoad(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := New(ctx, cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	_, err = a.Tasks.AddTask(ctx, model.Task{Title: "Plan sprint"})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := New(ctx, cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	assert.Empty(t, b.Assistant.Recommendations(), "loading does not notify observers")
	b.RefreshRecommendations(ctx)
	assert.NotEmpty(t, b.Assistant.Recommendations())
}

func TestNew_AIKeyLookup(t *testing.T) {
	ctx := context.Background()

	t.Run("skipped when AI is disabled", func(t *testing.T) {
		called := false
		a, err := New(ctx, testConfig(t), WithLogger(zap.NewNop()), WithAPIKey(func() (string, error) {
			called = true
			return "sk", nil
		}))
		require.NoError(t, err)
		t.Cleanup(func() { _ = a.Close() })

		assert.False(t, called)
		assert.False(t, a.Gateway.Enabled())
	})

	t.Run("failure falls back locally", func(t *testing.T) {
		logger, logs := testutil.NewObservedLogger()
		cfg := testConfig(t)
		cfg.AI.Enabled = true

		a, err := New(ctx, cfg, WithLogger(logger), WithAPIKey(func() (string, error) {
			return "", errors.New("keyring locked")
		}))
		require.NoError(t, err)
		t.Cleanup(func() { _ = a.Close() })

		assert.False(t, a.Gateway.Enabled())
		assert.Equal(t, 1, logs.FilterMessage("AI key unavailable, using local fallbacks").Len())
	})

	t.Run("key enables the gateway", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.AI.Enabled = true

		a, err := New(ctx, cfg, WithLogger(zap.NewNop()), WithAPIKey(func() (string, error) {
			return "sk-test", nil
		}))
		require.NoError(t, err)
		t.Cleanup(func() { _ = a.Close() })

		assert.True(t, a.Gateway.Enabled())
	})
}

func TestNewCalendar_DegradesToDisabled(t *testing.T) {
	logger, logs := testutil.NewObservedLogger()
	cfg := model.CalendarConfig{
		Enabled:         true,
		CredentialsFile: filepath.Join(t.TempDir(), "missing.json"),
		TokenFile:       filepath.Join(t.TempDir(), "token.json"),
	}

	cal := newCalendar(context.Background(), cfg, logger)

	ref, err := cal.CreateEvent(context.Background(), model.Task{ID: "t"})
	require.NoError(t, err)
	assert.Empty(t, ref)
	assert.Equal(t, 1, logs.Len())
}
