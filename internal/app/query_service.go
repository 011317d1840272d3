package app

import (
	"context"
	"errors"
	"log"
	"strings"

	"coursechat/internal/index"
	"coursechat/internal/model"
	"coursechat/internal/session"
	"coursechat/internal/tool"
)

var ErrQueryEmpty = errors.New("query is empty")

// AsyncExchangePublisher hands a finished exchange to the audit queue.
type AsyncExchangePublisher interface {
	Publish(ctx context.Context, exchange model.Exchange) error
}

// QueryService wires session history, the two-round orchestrator and the
// audit trail behind the query endpoint.
type QueryService struct {
	sessions     session.Store
	orchestrator *Orchestrator
	index        *index.Index
	publisher    AsyncExchangePublisher
}

type QueryInput struct {
	SessionID string
	Query     string
}

type QueryResult struct {
	SessionID string        `json:"session_id"`
	Answer    string        `json:"answer"`
	Sources   []tool.Source `json:"sources"`
}

type CourseStats struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

func NewQueryService(
	sessions session.Store,
	orchestrator *Orchestrator,
	ix *index.Index,
	publisher AsyncExchangePublisher,
) *QueryService {
	return &QueryService{
		sessions:     sessions,
		orchestrator: orchestrator,
		index:        ix,
		publisher:    publisher,
	}
}

func (s *QueryService) CreateSession(ctx context.Context) (string, error) {
	return s.sessions.Create(ctx)
}

// HandleQuery answers one query in its session. The exchange is appended to
// the session window before returning; audit publication is best effort and
// never fails the request.
func (s *QueryService) HandleQuery(ctx context.Context, input QueryInput) (*QueryResult, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, ErrQueryEmpty
	}

	sessionID := input.SessionID
	if sessionID == "" {
		id, err := s.sessions.Create(ctx)
		if err != nil {
			return nil, err
		}
		sessionID = id
	}

	history, err := s.sessions.Context(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	answer, sources, err := s.orchestrator.Respond(ctx, query, history)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Append(ctx, sessionID, query, answer); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		exchange := model.Exchange{SessionID: sessionID, Query: query, Answer: answer}
		if err := s.publisher.Publish(ctx, exchange); err != nil {
			log.Printf("publish exchange for session %s failed: %v", sessionID, err)
		}
	}

	if sources == nil {
		sources = []tool.Source{}
	}
	return &QueryResult{SessionID: sessionID, Answer: answer, Sources: sources}, nil
}

// GetCourseStats reports what the index currently holds.
func (s *QueryService) GetCourseStats(ctx context.Context) (*CourseStats, error) {
	total, titles, err := s.index.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &CourseStats{TotalCourses: total, CourseTitles: titles}, nil
}
