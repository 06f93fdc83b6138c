package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
	"github.com/kirillkom/hybrid-qa/internal/core/ports"
	"github.com/kirillkom/hybrid-qa/internal/observability/metrics"
)

const (
	defaultQueueGroup   = "qa-workers"
	defaultDrainTimeout = 30 * time.Second
)

// Responder answers AskRequest messages on a queue-group subscription.
type Responder struct {
	conn     *nats.Conn
	subject  string
	queue    string
	service  string
	answerer ports.QuestionAnswerer
	metrics  *metrics.ResponderMetrics
	timeout  time.Duration
	logger   *slog.Logger

	drainTimeout time.Duration
}

type ResponderOption func(*Responder)

func WithQueueGroup(group string) ResponderOption {
	return func(r *Responder) {
		if group != "" {
			r.queue = group
		}
	}
}

func WithResponderMetrics(service string, m *metrics.ResponderMetrics) ResponderOption {
	return func(r *Responder) {
		r.service = service
		r.metrics = m
	}
}

// WithHandlerTimeout bounds each request. Zero leaves the query use case
// deadline as the only bound.
func WithHandlerTimeout(timeout time.Duration) ResponderOption {
	return func(r *Responder) {
		r.timeout = timeout
	}
}

// WithDrainTimeout bounds how long Serve waits for queued requests after ctx
// is done.
func WithDrainTimeout(timeout time.Duration) ResponderOption {
	return func(r *Responder) {
		if timeout > 0 {
			r.drainTimeout = timeout
		}
	}
}

func WithResponderLogger(logger *slog.Logger) ResponderOption {
	return func(r *Responder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewResponder(conn *nats.Conn, subject string, answerer ports.QuestionAnswerer, opts ...ResponderOption) *Responder {
	r := &Responder{
		conn:     conn,
		subject:  subject,
		queue:    defaultQueueGroup,
		service:  "qa-worker",
		answerer: answerer,
		logger:   slog.Default(),

		drainTimeout: defaultDrainTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Serve blocks until ctx is done, then drains the subscription. Requests are
// answered on a context detached from ctx, so messages delivered during the
// drain and handlers already running still get their reply.
func (r *Responder) Serve(ctx context.Context) error {
	var inFlight sync.WaitGroup
	requestCtx := context.WithoutCancel(ctx)
	sub, err := r.conn.QueueSubscribe(r.subject, r.queue, func(msg *nats.Msg) {
		inFlight.Add(1)
		defer inFlight.Done()

		reply := r.handle(requestCtx, msg.Data, msg.Header.Get(requestIDHeader))
		if msg.Reply == "" {
			return
		}
		payload, err := json.Marshal(reply)
		if err != nil {
			r.logger.Error("nats_reply_encode_failed", "error", err)
			return
		}
		if err := msg.Respond(payload); err != nil {
			r.logger.Error("nats_reply_failed", "subject", r.subject, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := r.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	r.logger.Info("nats_responder_draining", "subject", r.subject)
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	deadline := time.Now().Add(r.drainTimeout)
	for sub.IsValid() {
		if time.Now().After(deadline) {
			return fmt.Errorf("nats drain subscription: timed out after %s", r.drainTimeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
	inFlight.Wait()
	if err := r.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (r *Responder) handle(ctx context.Context, data []byte, requestID string) AskReply {
	start := time.Now()
	if r.metrics != nil {
		r.metrics.StartRequest()
	}

	reply := r.answer(ctx, data, start)

	status := "ok"
	if reply.Status != 0 {
		status = strconv.Itoa(reply.Status)
	}
	if r.metrics != nil {
		r.metrics.FinishRequest(r.service, status, time.Since(start))
	}
	r.logger.Info("nats_ask",
		"request_id", requestID,
		"status", status,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return reply
}

func (r *Responder) answer(ctx context.Context, data []byte, start time.Time) AskReply {
	var req AskRequest
	if err := json.Unmarshal(data, &req); err != nil {
		err = domain.WrapError(domain.ErrInvalidInput, "decode ask request", err)
		return AskReply{Error: err.Error(), Status: replyStatus(err)}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	query := req.query()
	answer, err := r.answerer.Ask(ctx, query)
	if err != nil {
		r.logger.Warn("nats_ask_failed", "error", err)
		return AskReply{Error: err.Error(), Status: replyStatus(err)}
	}
	if r.metrics != nil {
		r.metrics.QA.ObserveAnswer(r.service, "nats", answer, time.Since(start))
	}
	return AskReply{Answer: answer}
}
