// Package notify sends operator alerts for failed pipeline job runs.
package notify

import (
	"fmt"

	"github.com/gtixt/console/internal/jobs"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// Notifier emails operators when a job run reaches a failed terminal
// state. With an empty API key every notification is a logged no-op, so
// deployments without SendGrid lose nothing but the email.
type Notifier struct {
	apiKey string
	from   string
	to     string
	logger *logrus.Logger

	// send is swapped out in tests.
	send func(email *mail.SGMailV3) (int, error)
}

func NewNotifier(apiKey, from, to string, logger *logrus.Logger) *Notifier {
	n := &Notifier{
		apiKey: apiKey,
		from:   from,
		to:     to,
		logger: logger,
	}
	n.send = func(email *mail.SGMailV3) (int, error) {
		response, err := sendgrid.NewSendClient(n.apiKey).Send(email)
		if err != nil {
			return 0, err
		}
		return response.StatusCode, nil
	}
	return n
}

// JobFailed reports a failed run. Errors are logged, never propagated;
// a broken mail path must not affect run bookkeeping.
func (n *Notifier) JobFailed(result jobs.Result) {
	if n.apiKey == "" || n.to == "" {
		n.logger.WithField("job", result.Name).Debug("Email notifications disabled, skipping failure alert")
		return
	}

	subject := fmt.Sprintf("[GTIXT] job %s failed (exit %d)", result.Name, result.ExitCode)
	body := fmt.Sprintf(
		"Job: %s\nRun: %s\nStarted: %s\nDuration: %ds\nExit code: %d\nTimed out: %t\n\nOutput (truncated):\n%s",
		result.Name,
		result.RunID,
		result.StartTime.Format("2006-01-02 15:04:05 MST"),
		result.DurationSeconds,
		result.ExitCode,
		result.TimedOut,
		tail(result.Output, 2000),
	)

	from := mail.NewEmail("GTIXT Console", n.from)
	to := mail.NewEmail("", n.to)
	email := mail.NewSingleEmail(from, subject, to, body, body)

	status, err := n.send(email)
	if err != nil {
		n.logger.WithError(err).WithField("job", result.Name).Error("Failed to send failure alert")
		return
	}
	if status >= 400 {
		n.logger.WithFields(logrus.Fields{"job": result.Name, "status": status}).Error("Sendgrid rejected failure alert")
		return
	}

	n.logger.WithFields(logrus.Fields{"job": result.Name, "to": n.to}).Info("Failure alert sent")
}

func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
