package notify_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/pestwatch/internal/notify"
)

func TestMessageText(t *testing.T) {
	msg := notify.Message{Submitter: "Juan Dela Cruz", Label: "snail"}
	assert.Equal(t, "New prediction from Juan Dela Cruz: snail", msg.Text())
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := notify.Config{}
	require.NoError(t, cfg.Finalize(nil))

	n, err := notify.New(&cfg, logger)
	require.NoError(t, err)

	err = n.Notify(context.Background(), notify.Message{
		Submitter:  "Maria",
		Label:      "fall_armyworm",
		Confidence: 0.91,
		RecordID:   "rec-1",
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "[ADMIN NOTIFY] New prediction from Maria: fall_armyworm")
	assert.Contains(t, out, "record_id=rec-1")
	assert.Contains(t, out, "system=notify")
}

func TestShoutrrrSender(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := notify.Config{URLs: []string{"logger://"}}
	require.NoError(t, cfg.Finalize(nil))

	n, err := notify.New(&cfg, logger)
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), notify.Message{Submitter: "Ana", Label: "stem_borer"}))
	assert.Contains(t, buf.String(), "notification sender configured")
	assert.Contains(t, buf.String(), "New prediction from Ana: stem_borer")
}

func TestInvalidURL(t *testing.T) {
	cfg := notify.Config{URLs: []string{"carrier-pigeon://coop"}}
	require.NoError(t, cfg.Finalize(nil))

	_, err := notify.New(&cfg, slog.Default())
	assert.Error(t, err)
}

func TestConfig(t *testing.T) {
	t.Setenv("NOTIFY_URLS", " logger:// , ,telegram://token@telegram?chats=1 ")
	t.Setenv("NOTIFY_TIMEOUT", "2s")

	cfg := notify.Config{}
	require.NoError(t, cfg.Finalize(&notify.Env{URLs: "NOTIFY_URLS", Timeout: "NOTIFY_TIMEOUT"}))

	assert.Equal(t, []string{"logger://", "telegram://token@telegram?chats=1"}, cfg.URLs)
	assert.Equal(t, 2*time.Second, cfg.TimeoutDuration())
	assert.Equal(t, "Pestwatch", cfg.Title)

	cfg.Merge(&notify.Config{Title: "Field Alerts"})
	assert.Equal(t, "Field Alerts", cfg.Title)

	bad := notify.Config{Timeout: "later"}
	assert.Error(t, bad.Finalize(nil))
}
