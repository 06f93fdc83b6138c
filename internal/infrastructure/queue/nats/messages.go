package nats

import (
	"context"
	"errors"
	"net/http"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
)

const requestIDHeader = "X-Request-Id"

// AskRequest is the JSON body of a question sent over NATS.
type AskRequest struct {
	Question   string   `json:"question"`
	TopK       int      `json:"top_k,omitempty"`
	CandidateK int      `json:"candidate_k,omitempty"`
	Alpha      *float64 `json:"alpha,omitempty"`
	Mode       string   `json:"mode,omitempty"`
}

func (r AskRequest) query() domain.Query {
	return domain.Query{
		Text:       r.Question,
		TopK:       r.TopK,
		CandidateK: r.CandidateK,
		Alpha:      r.Alpha,
		Mode:       domain.Mode(r.Mode),
	}
}

// AskReply carries either an answer or an error with an HTTP-like status.
type AskReply struct {
	Answer *domain.Answer `json:"answer,omitempty"`
	Error  string         `json:"error,omitempty"`
	Status int            `json:"status,omitempty"`
}

func replyStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUpstreamUnavailable),
		domain.IsKind(err, domain.ErrTemporary),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ReplyError is returned by Client.Ask when the responder answered with an
// error.
type ReplyError struct {
	Status  int
	Message string
}

func (e *ReplyError) Error() string {
	return "nats ask: " + e.Message
}

// Unwrap maps the reply status back onto the domain error kinds.
func (e *ReplyError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return domain.ErrInvalidInput
	case http.StatusServiceUnavailable:
		return domain.ErrUpstreamUnavailable
	default:
		return nil
	}
}
