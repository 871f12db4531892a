package chat

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/carepath/carepath/internal/domain"
	"github.com/carepath/carepath/internal/upstream"
)

// Engine is the slice of the upstream client the conversation controller
// uses.
type Engine interface {
	StartChat(ctx context.Context, sessionID string) (*upstream.ChatReply, error)
	SendMessage(ctx context.Context, sessionID, message string) (*upstream.ChatReply, error)
	Summary(ctx context.Context, sessionID string) (*upstream.ChatSummary, error)
}

const engineDownMessage = "Sorry, I could not reach the assistant just now. Please send your message again."

// Service runs turn-based conversations. Turns are strictly sequential
// per session; a message sent while another is in flight is rejected, not
// queued. Replies that arrive after the session was reset are discarded.
type Service struct {
	engine Engine
	repo   Repository
	logger zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]bool

	// newID is injectable for tests. Session ids are minted locally and
	// passed to the engine on every call.
	newID func() string
}

func NewService(engine Engine, repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		engine:   engine,
		repo:     repo,
		logger:   logger,
		inFlight: make(map[string]bool),
		newID: func() string {
			return strconv.FormatInt(time.Now().UnixMilli(), 10)
		},
	}
}

// Start mints a session, asks the engine for its greeting and persists
// the transcript. Sessions are open to anonymous patients; an empty
// ownerID leaves the session keyed by its id alone. An unreachable
// engine still yields a usable session; the failure shows up as an
// assistant turn.
func (s *Service) Start(ctx context.Context, ownerID string) (*Session, error) {
	session := &Session{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}

	reply, err := s.engine.StartChat(ctx, session.ID)
	if err != nil {
		s.logger.Warn().Str("session_id", session.ID).Err(err).Msg("chat start failed")
		session.appendTurn(SenderAssistant, engineDownMessage, time.Now().UTC())
	} else {
		session.appendTurn(SenderAssistant, reply.Message, time.Now().UTC())
	}

	if err := s.repo.Save(ctx, session); err != nil {
		return nil, err
	}
	return session.clone(), nil
}

// SendMessage appends the user turn, forwards it to the engine and
// appends the reply. The user turn is persisted before the engine call so
// the transcript reflects what the patient said even when the engine
// fails.
func (s *Service) SendMessage(ctx context.Context, ownerID, sessionID, text string) (*Session, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewValidationError("message is required")
	}

	s.mu.Lock()
	if s.inFlight[sessionID] {
		s.mu.Unlock()
		return nil, domain.NewTurnInFlightError(sessionID)
	}
	s.inFlight[sessionID] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inFlight, sessionID)
		s.mu.Unlock()
	}()

	session, err := s.lookup(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Active {
		return nil, domain.NewValidationError("conversation has ended")
	}

	session.appendTurn(SenderUser, text, time.Now().UTC())
	if err := s.repo.Save(ctx, session); err != nil {
		return nil, err
	}

	reply, engineErr := s.engine.SendMessage(ctx, sessionID, text)

	// Reload before applying the reply. A reset while the call was in
	// flight removed the session; its reply belongs to a dead transcript.
	current, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		s.logger.Debug().Str("session_id", sessionID).Msg("discarding reply for reset session")
		return nil, domain.NewNotFoundError("chat session", sessionID)
	}

	if engineErr != nil {
		s.logger.Warn().Str("session_id", sessionID).Err(engineErr).Msg("chat turn failed")
		current.appendTurn(SenderAssistant, engineDownMessage, time.Now().UTC())
	} else {
		current.appendTurn(SenderAssistant, reply.Message, time.Now().UTC())
		if reply.Done {
			current.Active = false
		}
	}

	if err := s.repo.Save(ctx, current); err != nil {
		return nil, err
	}
	return current.clone(), nil
}

// Reset discards the transcript and starts over with a fresh session id.
func (s *Service) Reset(ctx context.Context, ownerID, sessionID string) (*Session, error) {
	if _, err := s.lookup(ctx, ownerID, sessionID); err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.Start(ctx, ownerID)
}

// Transcript returns the stored session.
func (s *Service) Transcript(ctx context.Context, ownerID, sessionID string) (*Session, error) {
	session, err := s.lookup(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	return session.clone(), nil
}

// Summary asks the engine to summarize the conversation so far.
func (s *Service) Summary(ctx context.Context, ownerID, sessionID string) (*upstream.ChatSummary, error) {
	if _, err := s.lookup(ctx, ownerID, sessionID); err != nil {
		return nil, err
	}
	return s.engine.Summary(ctx, sessionID)
}

// lookup fetches a session and enforces ownership. Sessions started by
// a signed-in patient are invisible to anyone else; anonymous sessions
// are reachable by whoever holds the minted id.
func (s *Service) lookup(ctx context.Context, ownerID, sessionID string) (*Session, error) {
	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || (session.OwnerID != "" && session.OwnerID != ownerID) {
		return nil, domain.NewNotFoundError("chat session", sessionID)
	}
	return session, nil
}
