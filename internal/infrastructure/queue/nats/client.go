package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/resilience"
)

// Client sends questions to a Responder and waits for the reply.
type Client struct {
	conn     *nats.Conn
	subject  string
	timeout  time.Duration
	executor *resilience.Executor
}

func NewClient(conn *nats.Conn, subject string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		conn:     conn,
		subject:  subject,
		timeout:  timeout,
		executor: executor,
	}
}

func (c *Client) Ask(ctx context.Context, req AskRequest) (*domain.Answer, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode ask request: %w", err)
	}
	requestID := uuid.NewString()

	call := func(ctx context.Context) (*nats.Msg, error) {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		msg := nats.NewMsg(c.subject)
		msg.Data = payload
		msg.Header.Set(requestIDHeader, requestID)
		resp, err := c.conn.RequestMsgWithContext(reqCtx, msg)
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				err = nats.ErrTimeout
			}
			return nil, fmt.Errorf("nats request: %w", err)
		}
		return resp, nil
	}

	resp, err := resilience.Call(ctx, c.executor, "nats.ask", call, classifyNATSError)
	if err != nil {
		return nil, resilience.WrapTemporary("nats ask", err, classifyNATSError)
	}
	return decodeReply(resp.Data)
}

func decodeReply(data []byte) (*domain.Answer, error) {
	var reply AskReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("decode ask reply: %w", err)
	}
	if reply.Error != "" || reply.Status != 0 {
		return nil, &ReplyError{Status: reply.Status, Message: reply.Error}
	}
	if reply.Answer == nil {
		return nil, fmt.Errorf("decode ask reply: empty answer")
	}
	return reply.Answer, nil
}
