package notify

import (
	"io"
	"testing"
	"time"

	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtixt/console/internal/jobs"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func failedResult() jobs.Result {
	return jobs.Result{
		RunID:           "run-1",
		Name:            "crawl_firms",
		StartTime:       time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC),
		EndTime:         time.Date(2026, 2, 3, 10, 1, 0, 0, time.UTC),
		ExitCode:        7,
		Success:         false,
		Output:          "traceback: boom",
		DurationSeconds: 60,
	}
}

func TestJobFailed_SendsEmail(t *testing.T) {
	n := NewNotifier("SG.key", "console@gtixt.org", "ops@gtixt.org", testLogger())

	var sent *mail.SGMailV3
	n.send = func(email *mail.SGMailV3) (int, error) {
		sent = email
		return 202, nil
	}

	n.JobFailed(failedResult())

	require.NotNil(t, sent)
	assert.Equal(t, "[GTIXT] job crawl_firms failed (exit 7)", sent.Subject)
	require.NotEmpty(t, sent.Content)
	assert.Contains(t, sent.Content[0].Value, "run-1")
	assert.Contains(t, sent.Content[0].Value, "traceback: boom")
}

func TestJobFailed_DisabledWithoutAPIKey(t *testing.T) {
	n := NewNotifier("", "console@gtixt.org", "ops@gtixt.org", testLogger())

	called := false
	n.send = func(email *mail.SGMailV3) (int, error) {
		called = true
		return 202, nil
	}

	n.JobFailed(failedResult())

	assert.False(t, called)
}

func TestJobFailed_DisabledWithoutRecipient(t *testing.T) {
	n := NewNotifier("SG.key", "console@gtixt.org", "", testLogger())

	called := false
	n.send = func(email *mail.SGMailV3) (int, error) {
		called = true
		return 202, nil
	}

	n.JobFailed(failedResult())

	assert.False(t, called)
}

func TestJobFailed_SendErrorDoesNotPanic(t *testing.T) {
	n := NewNotifier("SG.key", "console@gtixt.org", "ops@gtixt.org", testLogger())
	n.send = func(email *mail.SGMailV3) (int, error) {
		return 0, assert.AnError
	}

	assert.NotPanics(t, func() {
		n.JobFailed(failedResult())
	})
}

func TestJobFailed_TruncatesLongOutput(t *testing.T) {
	n := NewNotifier("SG.key", "console@gtixt.org", "ops@gtixt.org", testLogger())

	var sent *mail.SGMailV3
	n.send = func(email *mail.SGMailV3) (int, error) {
		sent = email
		return 202, nil
	}

	result := failedResult()
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	result.Output = string(long) + "END"
	n.JobFailed(result)

	require.NotNil(t, sent)
	assert.Contains(t, sent.Content[0].Value, "END")
	assert.Less(t, len(sent.Content[0].Value), 3000)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "abc", tail("abc", 10))
	assert.Equal(t, "cde", tail("abcde", 3))
}
