// internal/message/message.go
//
// Outbound e-mail: sender implementations and a bounded in-process queue.
//
// Context
//   Public form handlers notify the secretary after a successful insert.
//   Delivery is best effort: the handler enqueues and returns at once, a
//   single worker sends in the background, and failures are logged and
//   counted but never reach the visitor.
//
//   ResendSender talks to the Resend API.  LogSender writes the payload to
//   the log and is used when no API key is configured.
//
//------------------------------------------------------------------------------

package message

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/metrics"
)

// ErrQueueFull is returned by Enqueue when the buffer is saturated.
var ErrQueueFull = errors.New("message: queue full")

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("message: queue closed")

// Email represents one outbound e-mail.
type Email struct {
	To      []string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers one e-mail.
type Sender interface {
	Send(ctx context.Context, msg Email) error
}

/*──────────────────────────── senders ─────────────────────────────────────*/

// ResendSender sends through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender returns a sender using apiKey and the default from address.
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, msg Email) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	if msg.ReplyTo != "" {
		params.ReplyTo = msg.ReplyTo
	}
	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	zap.S().Infow("notification sent", "resend_id", sent.Id, "to", msg.To, "subject", msg.Subject)
	return nil
}

// LogSender logs instead of sending.
type LogSender struct{ Log *zap.SugaredLogger }

func (s LogSender) Send(_ context.Context, msg Email) error {
	log := s.Log
	if log == nil {
		log = zap.S()
	}
	log.Infow("notification (log only)",
		"to", msg.To, "reply_to", msg.ReplyTo, "subject", msg.Subject, "len_text", len(msg.Text))
	return nil
}

/*──────────────────────────── queue ───────────────────────────────────────*/

// sendTimeout bounds one delivery attempt.
const sendTimeout = 15 * time.Second

// Queue buffers e-mails for one background worker.  Zero value is unusable;
// construct with NewQueue.
type Queue struct {
	sender Sender
	ch     chan Email
	log    *zap.SugaredLogger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewQueue starts the worker.  size < 1 means 1.
func NewQueue(sender Sender, size int, log *zap.SugaredLogger) *Queue {
	if size < 1 {
		size = 1
	}
	if log == nil {
		log = zap.S()
	}
	q := &Queue{sender: sender, ch: make(chan Email, size), log: log, done: make(chan struct{})}
	go q.run()
	return q
}

// Enqueue hands msg to the worker without blocking.
func (q *Queue) Enqueue(msg Email) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- msg:
		return nil
	default:
		metrics.NotificationsSent.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits until the backlog is sent or ctx
// ends.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for msg := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := q.sender.Send(ctx, msg)
		cancel()
		if err != nil {
			metrics.NotificationsSent.WithLabelValues("failed").Inc()
			q.log.Errorw("notification failed", "subject", msg.Subject, "err", err)
			continue
		}
		metrics.NotificationsSent.WithLabelValues("sent").Inc()
	}
}
