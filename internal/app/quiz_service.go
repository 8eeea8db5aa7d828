package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"spelling-quiz-service/internal/domain"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	GetOrCreate(sessionID string, create func() (*Session, error)) (*Session, bool, error)
	Get(sessionID string) (*Session, bool)
	DeleteIfIdle(sessionID string)
}

// QuizService contains the spelling quiz use cases for hosted sessions.
type QuizService struct {
	sessions  SessionRepository
	template  ControllerConfig
	newPicker func() Picker
	log       *zap.Logger
}

// NewQuizService builds the service. Every session gets a controller configured
// from template and its own picker from newPicker. The corpus is checked up front
// so a misconfigured deployment fails at startup rather than on the first session.
func NewQuizService(store SessionRepository, template ControllerConfig, newPicker func() Picker, log *zap.Logger) (*QuizService, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if newPicker == nil {
		newPicker = func() Picker { return NewRandomPicker(true) }
	}
	if err := validateCorpus(template.Corpus, newPicker().FirstEligible()); err != nil {
		return nil, err
	}
	return &QuizService{sessions: store, template: template, newPicker: newPicker, log: log}, nil
}

// joinAttempts bounds how often Join retries a session retired under it.
const joinAttempts = 3

// Start returns the session for sessionID, creating it and drawing the first word if needed.
func (s *QuizService) Start(_ context.Context, sessionID string) (domain.Snapshot, error) {
	session, err := s.getOrStart(sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return session.controller.Snapshot(), nil
}

// Join starts the session if needed and subscribes to it in one step. A session
// retired by a concurrent Leave is replaced by a fresh one. The snapshot is taken
// after subscribing, so no update between the two is lost. The caller must invoke
// the returned cancel function.
func (s *QuizService) Join(_ context.Context, sessionID string) (domain.Snapshot, <-chan domain.Event, func(), error) {
	for attempt := 0; attempt < joinAttempts; attempt++ {
		session, err := s.getOrStart(sessionID)
		if err != nil {
			return domain.Snapshot{}, nil, nil, err
		}
		ch, cancel, err := session.subscribe()
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.log.Debug("session retired while joining, retrying", zap.String("session_id", sessionID))
			continue
		}
		if err != nil {
			return domain.Snapshot{}, nil, nil, err
		}
		return session.controller.Snapshot(), ch, cancel, nil
	}
	return domain.Snapshot{}, nil, nil, domain.ErrSessionNotFound
}

func (s *QuizService) getOrStart(sessionID string) (*Session, error) {
	session, _, err := s.sessions.GetOrCreate(sessionID, func() (*Session, error) {
		cfg := s.template
		cfg.Picker = s.newPicker()
		cfg.Log = s.log.With(zap.String("session_id", sessionID))
		session, err := NewSession(sessionID, cfg)
		if err != nil {
			return nil, err
		}
		session.controller.NextWord()
		s.log.Info("session started", zap.String("session_id", sessionID))
		return session, nil
	})
	return session, err
}

// NextWord draws a new word for the session.
func (s *QuizService) NextWord(_ context.Context, sessionID string) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	session.controller.NextWord()
	return session.controller.Snapshot(), nil
}

// UpdateGuess replaces the in-progress guess.
func (s *QuizService) UpdateGuess(_ context.Context, sessionID, text string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.controller.UpdateGuess(text)
	return nil
}

// SubmitGuess judges the session's current guess.
func (s *QuizService) SubmitGuess(_ context.Context, sessionID string) (domain.Outcome, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Outcome{}, domain.ErrSessionNotFound
	}
	return session.controller.SubmitGuess(), nil
}

// Reset zeroes the session's counters and draws a new word.
func (s *QuizService) Reset(_ context.Context, sessionID string) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	session.controller.Reset()
	return session.controller.Snapshot(), nil
}

// PlayPronunciation asks the session to play the current word.
func (s *QuizService) PlayPronunciation(_ context.Context, sessionID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.controller.PlayPronunciation()
	return nil
}

// Status returns the session's current snapshot.
func (s *QuizService) Status(_ context.Context, sessionID string) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	return session.controller.Snapshot(), nil
}

// Subscribe returns a channel of session events.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan domain.Event, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	return session.subscribe()
}

// Leave discards the session once nobody is subscribed to it.
func (s *QuizService) Leave(_ context.Context, sessionID string) {
	if _, ok := s.sessions.Get(sessionID); !ok {
		return
	}
	s.sessions.DeleteIfIdle(sessionID)
}
