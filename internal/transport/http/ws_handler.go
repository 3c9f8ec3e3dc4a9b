package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"trivia-party/internal/app"
	"trivia-party/internal/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler serves the host display websocket.
type WSHandler struct {
	game     *app.GameService
	teams    *app.TeamService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler builds a websocket handler over the game and team services.
func NewWSHandler(game *app.GameService, teams *app.TeamService, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		game:  game,
		teams: teams,
		log:   log,
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

type categoryPayload struct {
	CategoryID string `json:"categoryId"`
}

type answerPayload struct {
	AnswerID string `json:"answerId"`
}

type teamPayload struct {
	TeamID string `json:"teamId"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Emoji  string `json:"emoji"`
	Delta  int    `json:"delta"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

var errBadPayload = errors.New("invalid payload")

// ServeWS upgrades the host display connection. Every game event is forwarded followed by a
// fresh snapshot; inbound messages are host commands.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := h.game.Subscribe()
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// Only the writer goroutine touches conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	send <- outboundMessage{Type: "state", Payload: h.game.Snapshot()}

	go func() {
		defer close(eventsDone)
		for {
			select {
			case evt, ok := <-events:
				if !ok {
					return
				}
				for _, msg := range []outboundMessage{
					{Type: "event", Payload: evt},
					{Type: "state", Payload: h.game.Snapshot()},
				} {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(r.Context(), inbound); err != nil {
			select {
			case send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}:
			case <-writerDone:
			}
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, inbound inboundMessage) error {
	switch inbound.Type {
	case "selectCategory":
		var payload categoryPayload
		if err := decode(inbound.Payload, &payload); err != nil {
			return err
		}
		applied, err := h.game.SelectCategory(ctx, payload.CategoryID)
		return rejected(applied, err)
	case "selectAnswer":
		var payload answerPayload
		if err := decode(inbound.Payload, &payload); err != nil {
			return err
		}
		_, applied, err := h.game.SelectAnswer(ctx, payload.AnswerID)
		return rejected(applied, err)
	case "completeQuestion":
		return rejected(h.game.CompleteCurrentQuestion(ctx), nil)
	case "skipTransition":
		return rejected(h.game.SkipTransition(), nil)
	case "restart":
		h.game.Restart(ctx)
		return nil
	case "addTeam":
		var payload teamPayload
		if err := decode(inbound.Payload, &payload); err != nil {
			return err
		}
		_, err := h.teams.AddTeam(ctx, payload.Name, payload.Color, payload.Emoji)
		return err
	case "updateTeam":
		var payload teamPayload
		if err := decode(inbound.Payload, &payload); err != nil {
			return err
		}
		_, err := h.teams.UpdateTeam(ctx, payload.TeamID, payload.Name, payload.Color)
		return err
	case "removeTeam":
		var payload teamPayload
		if err := decode(inbound.Payload, &payload); err != nil {
			return err
		}
		return h.teams.RemoveTeam(ctx, payload.TeamID)
	case "adjustScore":
		var payload teamPayload
		if err := decode(inbound.Payload, &payload); err != nil {
			return err
		}
		_, err := h.teams.AdjustScore(ctx, payload.TeamID, payload.Delta)
		return err
	case "resetTeams":
		h.teams.ResetTeams(ctx)
		return nil
	default:
		return errors.New("unsupported message type")
	}
}

// rejected reports a command the game ignored in its current phase.
func rejected(applied bool, err error) error {
	if err != nil {
		return err
	}
	if !applied {
		return domain.ErrInvalidTransition
	}
	return nil
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errBadPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errBadPayload
	}
	return nil
}

