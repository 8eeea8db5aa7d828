package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"spelling-quiz-service/internal/app"
	"spelling-quiz-service/internal/domain"
)

// RateLimit bounds how many inbound messages a single connection may send.
type RateLimit struct {
	RPS   float64
	Burst int
}

type WSHandler struct {
	service  *app.QuizService
	limit    RateLimit
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, limit RateLimit, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		limit:   limit,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type guessPayload struct {
	Text *string `json:"text"`
}

type joinedPayload struct {
	SessionID string          `json:"sessionId"`
	State     domain.Snapshot `json:"state"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and drives one spelling session per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	log := h.log.With(zap.String("session_id", sessionID))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	snapshot, events, cancel, err := h.service.Join(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.Leave(ctx, sessionID)
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// single writer goroutine; gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write error", zap.Error(err))
				// unblock the read loop and keep draining so senders never stall
				failed = true
				_ = conn.Close()
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- eventMessage(event):
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{SessionID: sessionID, State: snapshot}}

	limiter := rate.NewLimiter(rate.Limit(h.limit.RPS), h.limit.Burst)
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if h.limit.Burst > 0 && !limiter.Allow() {
			send <- errorMessage("rate limit exceeded")
			continue
		}
		if reply, ok := h.handle(r, sessionID, inbound); ok {
			send <- reply
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// handle applies one inbound message. State changes reach the client through the
// session's event stream, so only explicit results are replied to directly.
func (h *WSHandler) handle(r *http.Request, sessionID string, inbound inboundMessage) (outboundMessage[any], bool) {
	ctx := r.Context()
	switch inbound.Type {
	case "guess", "submit":
		var payload guessPayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				return errorMessage("invalid guess payload"), true
			}
		}
		if inbound.Type == "guess" && payload.Text == nil {
			return errorMessage("guess requires text"), true
		}
		if payload.Text != nil {
			if err := h.service.UpdateGuess(ctx, sessionID, *payload.Text); err != nil {
				return errorMessage(err.Error()), true
			}
		}
		if inbound.Type == "guess" {
			return outboundMessage[any]{}, false
		}
		outcome, err := h.service.SubmitGuess(ctx, sessionID)
		if err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{Type: "result", Payload: outcome}, true
	case "next":
		if _, err := h.service.NextWord(ctx, sessionID); err != nil {
			return errorMessage(err.Error()), true
		}
	case "reset":
		if _, err := h.service.Reset(ctx, sessionID); err != nil {
			return errorMessage(err.Error()), true
		}
	case "play":
		if err := h.service.PlayPronunciation(ctx, sessionID); err != nil {
			return errorMessage(err.Error()), true
		}
	case "status":
		snapshot, err := h.service.Status(ctx, sessionID)
		if err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{Type: "status", Payload: snapshot}, true
	default:
		return errorMessage("unsupported message type"), true
	}
	return outboundMessage[any]{}, false
}

func eventMessage(event domain.Event) outboundMessage[any] {
	if event.Kind == domain.EventSound {
		return outboundMessage[any]{Type: "sound", Payload: event.Playback}
	}
	return outboundMessage[any]{Type: "state", Payload: event.Snapshot}
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
