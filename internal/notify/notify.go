// Package notify delivers admin notifications about new submissions.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// Message describes a newly classified submission.
type Message struct {
	Submitter  string
	Label      string
	Confidence float64
	RecordID   string
}

// Text renders the human-readable notification line.
func (m Message) Text() string {
	return fmt.Sprintf("New prediction from %s: %s", m.Submitter, m.Label)
}

// Notifier sends admin notifications.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// New returns a Notifier that always logs and, when cfg.URLs is set,
// also delivers through shoutrrr.
func New(cfg *Config, logger *slog.Logger) (Notifier, error) {
	logger = logger.With("system", "notify")
	notifiers := []Notifier{&logNotifier{logger: logger}}

	if len(cfg.URLs) > 0 {
		sender, err := shoutrrr.CreateSender(cfg.URLs...)
		if err != nil {
			return nil, fmt.Errorf("create notification sender: %w", err)
		}
		if t := cfg.TimeoutDuration(); t > 0 {
			sender.Timeout = t
		}
		sender.SetLogger(log.New(io.Discard, "", 0))

		notifiers = append(notifiers, &shoutrrrNotifier{
			sender: sender,
			title:  cfg.Title,
		})
		logger.Info("notification sender configured", "services", len(cfg.URLs))
	}

	if len(notifiers) == 1 {
		return notifiers[0], nil
	}
	return multi(notifiers), nil
}

type logNotifier struct {
	logger *slog.Logger
}

func (n *logNotifier) Notify(ctx context.Context, msg Message) error {
	n.logger.InfoContext(ctx, "[ADMIN NOTIFY] "+msg.Text(),
		"record_id", msg.RecordID,
		"confidence", msg.Confidence,
	)
	return nil
}

type shoutrrrNotifier struct {
	sender *router.ServiceRouter
	title  string
}

// Notify waits for delivery or ctx, whichever comes first. The router
// applies its own per-service timeout so an abandoned send still ends.
func (n *shoutrrrNotifier) Notify(ctx context.Context, msg Message) error {
	params := types.Params{}
	if n.title != "" {
		params.SetTitle(n.title)
	}

	done := make(chan error, 1)
	go func() {
		done <- errors.Join(n.sender.Send(msg.Text(), &params)...)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send notification: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type multi []Notifier

func (m multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
