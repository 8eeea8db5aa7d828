package app

import (
	"context"
	"sync"

	"spelling-quiz-service/internal/domain"
)

// Session hosts one player's controller and fans its updates out to subscribers.
// It is the controller's Player: playback requests become sound events for the client.
type Session struct {
	id         string
	controller *Controller

	mu          sync.RWMutex
	subscribers map[chan domain.Event]struct{}
	retired     bool
}

// NewSession builds a session around a fresh controller. cfg.Player and
// cfg.OnChange are replaced by the session's own broadcast hooks.
func NewSession(id string, cfg ControllerConfig) (*Session, error) {
	s := &Session{
		id:          id,
		subscribers: make(map[chan domain.Event]struct{}),
	}
	cfg.Player = s
	cfg.OnChange = s.publishState

	controller, err := NewController(cfg)
	if err != nil {
		return nil, err
	}
	s.controller = controller
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Controller exposes the underlying state machine.
func (s *Session) Controller() *Controller {
	return s.controller
}

// Play implements Player by broadcasting a sound event.
func (s *Session) Play(_ context.Context, playback domain.Playback) error {
	s.broadcast(domain.Event{Kind: domain.EventSound, Playback: playback})
	return nil
}

func (s *Session) publishState(snap domain.Snapshot) {
	s.broadcast(domain.Event{Kind: domain.EventState, Snapshot: snap})
}

func (s *Session) broadcast(event domain.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// drop the oldest queued event so a slow reader never blocks the controller
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// subscribe fails with ErrSessionNotFound once the session has been retired.
func (s *Session) subscribe() (<-chan domain.Event, func(), error) {
	ch := make(chan domain.Event, 16)

	s.mu.Lock()
	if s.retired {
		s.mu.Unlock()
		return nil, nil, domain.ErrSessionNotFound
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

// RetireIfIdle closes the session to new subscribers when nobody is subscribed
// and reports whether it did. Stores call it while holding their own lock so a
// retired session is never handed out again.
func (s *Session) RetireIfIdle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subscribers) > 0 {
		return false
	}
	s.retired = true
	return true
}

// Close stops background work for the session.
func (s *Session) Close() {
	s.controller.Close()
}
