package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"coursechat/internal/ai"
	"coursechat/internal/model"
	"coursechat/internal/session"
	"coursechat/internal/tool"
)

type capturingPublisher struct {
	published []model.Exchange
	fail      bool
}

func (p *capturingPublisher) Publish(_ context.Context, ex model.Exchange) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.published = append(p.published, ex)
	return nil
}

func newQueryService(gen ai.Generator, pub AsyncExchangePublisher) *QueryService {
	orch := NewOrchestrator(gen, tool.NewRegistry())
	return NewQueryService(session.NewMemoryStore(5), orch, nil, pub)
}

func TestHandleQuery_EmptyQuery(t *testing.T) {
	svc := newQueryService(&scriptedGenerator{}, nil)
	if _, err := svc.HandleQuery(context.Background(), QueryInput{Query: "   "}); !errors.Is(err, ErrQueryEmpty) {
		t.Fatalf("expected ErrQueryEmpty, got %v", err)
	}
}

func TestHandleQuery_CreatesSessionWhenAbsent(t *testing.T) {
	gen := &scriptedGenerator{responses: []*ai.Response{textResponse("answer")}}
	svc := newQueryService(gen, nil)

	result, err := svc.HandleQuery(context.Background(), QueryInput{Query: "hello"})
	if err != nil {
		t.Fatalf("handle query failed: %v", err)
	}
	if result.SessionID == "" {
		t.Fatalf("expected a generated session id")
	}
	if result.Answer != "answer" {
		t.Fatalf("wrong answer %q", result.Answer)
	}
	if result.Sources == nil {
		t.Fatalf("sources must serialize as an empty list, not null")
	}
}

func TestHandleQuery_HistoryAccumulatesInSession(t *testing.T) {
	gen := &scriptedGenerator{responses: []*ai.Response{
		textResponse("first answer"),
		textResponse("second answer"),
	}}
	svc := newQueryService(gen, nil)

	first, err := svc.HandleQuery(context.Background(), QueryInput{Query: "first question"})
	if err != nil {
		t.Fatalf("first query failed: %v", err)
	}
	if _, err := svc.HandleQuery(context.Background(), QueryInput{
		SessionID: first.SessionID,
		Query:     "second question",
	}); err != nil {
		t.Fatalf("second query failed: %v", err)
	}

	system := gen.requests[1].System
	if !strings.Contains(system, "first question") || !strings.Contains(system, "first answer") {
		t.Fatalf("second round should see the first exchange, got %q", system)
	}
}

func TestHandleQuery_PublishesExchange(t *testing.T) {
	gen := &scriptedGenerator{responses: []*ai.Response{textResponse("the answer")}}
	pub := &capturingPublisher{}
	svc := newQueryService(gen, pub)

	result, err := svc.HandleQuery(context.Background(), QueryInput{Query: "the question"})
	if err != nil {
		t.Fatalf("handle query failed: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected one published exchange, got %d", len(pub.published))
	}
	got := pub.published[0]
	if got.SessionID != result.SessionID || got.Query != "the question" || got.Answer != "the answer" {
		t.Fatalf("wrong exchange published: %+v", got)
	}
}

func TestHandleQuery_PublishFailureIsNotFatal(t *testing.T) {
	gen := &scriptedGenerator{responses: []*ai.Response{textResponse("answer")}}
	svc := newQueryService(gen, &capturingPublisher{fail: true})

	if _, err := svc.HandleQuery(context.Background(), QueryInput{Query: "q"}); err != nil {
		t.Fatalf("audit failure must not fail the request: %v", err)
	}
}
