package app

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"strings"
	"sync"
	"time"

	"medinsight/internal/model"
)

const (
	errorReplyPrefix = "An error occurred while generating the response: "
	sessionLockCount = 64
)

// Answerer is satisfied by *Handle.
type Answerer interface {
	Answer(ctx context.Context, question string) (*Answer, error)
}

type SessionStore interface {
	Get(ctx context.Context, id string) (*model.Session, bool, error)
	Save(ctx context.Context, session *model.Session) error
	Delete(ctx context.Context, id string) error
}

type TurnPublisher interface {
	PublishTurn(ctx context.Context, event model.TurnEvent) error
}

// TurnRecorder receives per-turn measurements. *metrics.Metrics implements it.
type TurnRecorder interface {
	RecordQuestion(surface string)
	RecordFailure(kind string)
	ObserveAnswer(d time.Duration)
}

type TurnResult struct {
	User      model.Message `json:"user"`
	Assistant model.Message `json:"assistant"`
	Sources   []Source      `json:"sources"`
	Failed    bool          `json:"failed"`
}

type ChatService struct {
	answerer  Answerer
	store     SessionStore
	publisher TurnPublisher
	recorder  TurnRecorder
	surface   string

	locks [sessionLockCount]sync.Mutex
}

// NewChatService wires the chat surface. store, publisher and recorder may be
// nil; without a store only Ask is usable.
func NewChatService(answerer Answerer, store SessionStore, publisher TurnPublisher, recorder TurnRecorder, surface string) *ChatService {
	return &ChatService{
		answerer:  answerer,
		store:     store,
		publisher: publisher,
		recorder:  recorder,
		surface:   surface,
	}
}

// Ask runs one turn on session. Answer failures are not returned: they
// become the assistant message so the conversation can continue.
func (s *ChatService) Ask(ctx context.Context, session *model.Session, question string) (*TurnResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrMessageEmpty
	}
	if s.recorder != nil {
		s.recorder.RecordQuestion(s.surface)
	}

	userMessage := session.Append(model.RoleUser, question)

	start := time.Now()
	answer, err := s.answerer.Answer(ctx, question)
	if s.recorder != nil {
		s.recorder.ObserveAnswer(time.Since(start))
	}

	result := &TurnResult{User: userMessage}
	if err != nil {
		log.Printf("chat turn failed: session=%s err=%v", session.ID, err)
		if s.recorder != nil {
			s.recorder.RecordFailure(FailureKind(err))
		}
		result.Failed = true
		result.Assistant = session.Append(model.RoleAssistant, errorReplyPrefix+err.Error())
	} else {
		result.Sources = answer.Sources
		result.Assistant = session.Append(model.RoleAssistant, answer.Text)
	}

	s.publish(ctx, session.ID, result)
	return result, nil
}

// SendMessage loads or creates the session, runs one turn and saves it.
func (s *ChatService) SendMessage(ctx context.Context, sessionID, content string) (*TurnResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrMessageEmpty
	}

	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	result, err := s.Ask(ctx, session, content)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return result, nil
}

// History returns the session messages, oldest first. Unknown sessions are
// empty, not an error.
func (s *ChatService) History(ctx context.Context, sessionID string) ([]model.Message, error) {
	session, ok, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if !ok {
		return []model.Message{}, nil
	}
	return session.History(), nil
}

func (s *ChatService) Reset(ctx context.Context, sessionID string) error {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

func (s *ChatService) load(ctx context.Context, sessionID string) (*model.Session, error) {
	session, ok, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if !ok {
		return model.NewSession(sessionID), nil
	}
	return session, nil
}

func (s *ChatService) publish(ctx context.Context, sessionID string, result *TurnResult) {
	if s.publisher == nil {
		return
	}
	event := model.TurnEvent{
		SessionID: sessionID,
		Question:  result.User.Content,
		Answer:    result.Assistant.Content,
		Failed:    result.Failed,
		CreatedAt: result.Assistant.CreatedAt,
	}
	for _, src := range result.Sources {
		event.Sources = append(event.Sources, src.Document)
	}
	if err := s.publisher.PublishTurn(ctx, event); err != nil {
		log.Printf("publish turn event failed: session=%s err=%v", sessionID, err)
	}
}

func (s *ChatService) lockFor(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%sessionLockCount]
}

// FailureKind names the stage that failed, for the failed-turn metric label.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrRetrieval):
		return "retrieval"
	case errors.Is(err, ErrGeneration):
		return "generation"
	default:
		return "other"
	}
}
