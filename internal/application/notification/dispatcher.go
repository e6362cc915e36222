// Package notification sends queued emails, turns registration events
// into parent emails and manages uploaded documents.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/notification"
	"go.uber.org/zap"
)

const defaultBatchSize = 50

// Message is a rendered email
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Renderer turns a queued email into a message
type Renderer interface {
	Render(n *notification.EmailNotification) (*Message, error)
}

// Mailer delivers a rendered message
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// DispatchResult counts the outcome of one dispatch run
type DispatchResult struct {
	Sent   int
	Failed int
}

// Dispatcher sends PENDING emails in batches
type Dispatcher struct {
	txScope   txn.TransactionScope
	renderer  Renderer
	mailer    Mailer
	batchSize int
	logger    *zap.Logger
	now       func() time.Time
}

// NewDispatcher creates a new Dispatcher. batchSize <= 0 uses 50.
func NewDispatcher(txScope txn.TransactionScope, renderer Renderer, mailer Mailer, batchSize int, logger *zap.Logger) *Dispatcher {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Dispatcher{
		txScope:   txScope,
		renderer:  renderer,
		mailer:    mailer,
		batchSize: batchSize,
		logger:    logger,
		now:       time.Now,
	}
}

// DispatchPending claims one batch of PENDING emails and sends them.
// Claimed rows stay locked until the batch is recorded, so concurrent
// dispatchers never send the same email twice.
func (d *Dispatcher) DispatchPending(ctx context.Context) (DispatchResult, error) {
	var result DispatchResult
	err := d.txScope.Execute(ctx, func(repos txn.Repositories) error {
		pending, err := repos.Emails().ClaimPending(ctx, d.batchSize)
		if err != nil {
			return fmt.Errorf("failed to claim pending emails: %w", err)
		}
		for i := range pending {
			n := &pending[i]
			if err := d.send(ctx, n); err != nil {
				n.MarkFailed(err)
				result.Failed++
				d.logger.Warn("Email delivery failed",
					zap.String("email_id", n.ID.String()),
					zap.String("template", n.Template),
					zap.Error(err),
				)
			} else {
				n.MarkSent(d.now().UTC())
				result.Sent++
			}
			if err := repos.Emails().Save(ctx, n); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	if result.Sent+result.Failed > 0 {
		d.logger.Info("Emails dispatched",
			zap.Int("sent", result.Sent),
			zap.Int("failed", result.Failed),
		)
	}
	return result, nil
}

func (d *Dispatcher) send(ctx context.Context, n *notification.EmailNotification) error {
	msg, err := d.renderer.Render(n)
	if err != nil {
		return fmt.Errorf("render %s: %w", n.Template, err)
	}
	return d.mailer.Send(ctx, msg)
}
