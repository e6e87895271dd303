package http

import (
	"net/http"

	"elearning-quiz/internal/app"
	"elearning-quiz/internal/domain"
	"elearning-quiz/internal/infra/api"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// WSHandler hosts one timed quiz session per websocket connection.
type WSHandler struct {
	gateway  Gateway
	upgrader websocket.Upgrader
}

func NewWSHandler(g Gateway) *WSHandler {
	return &WSHandler{
		gateway: g,
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

// answerPayload picks an option by its 1-based position, as the API numbers them.
type answerPayload struct {
	Option int `json:"option"`
}

type statePayload struct {
	domain.SessionState
	Clock string `json:"clock"`
}

// questionPayload carries the labels only; correctness stays on the server.
type questionPayload struct {
	Index   int      `json:"index"`
	Total   int      `json:"total"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type answerResult struct {
	Correct bool `json:"correct"`
	Score   int  `json:"score"`
}

type finishedPayload struct {
	Score         int `json:"score"`
	QuestionCount int `json:"questionCount"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ServeWS upgrades the request and runs a quiz session until the connection closes.
// Closing the connection tears the session down wherever it is.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	player, ok := PlayerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing player")
		return
	}
	log := h.gateway.Log.WithField("user", player.User.ID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	opts := append([]app.Option{app.WithLogger(log)}, h.gateway.Controller...)
	ctrl := app.NewController(h.gateway.Questions, h.gateway.Scores(player), h.gateway.Flags(player), opts...)
	updates, cancel := ctrl.Subscribe()
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	emit := func(msg outboundMessage) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		}
	}

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		h.forwardUpdates(ctrl, updates, closeSignals, emit)
	}()

	ctx := api.ContextWithToken(r.Context(), player.Token)
	if err := ctrl.Start(ctx); err != nil {
		emit(errorMessage(err))
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		var err error
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if jsonErr := json.Unmarshal(inbound.Payload, &payload); jsonErr != nil {
				emit(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			var correct bool
			if correct, err = ctrl.SubmitOption(payload.Option - 1); err == nil {
				emit(outboundMessage{Type: "answerResult", Payload: answerResult{Correct: correct, Score: ctrl.State().Score}})
			}
		case "restart":
			err = ctrl.Restart()
		case "retry":
			err = ctrl.Retry(ctx)
		default:
			emit(outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
			continue
		}
		if err != nil {
			emit(errorMessage(err))
		}
	}

	ctrl.Close()
	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// forwardUpdates turns state snapshots into wire messages: every snapshot as "state", a new
// "question" whenever the active question changes and "finished" once per completed run.
func (h *WSHandler) forwardUpdates(ctrl *app.Controller, updates <-chan domain.SessionState, done <-chan struct{}, emit func(outboundMessage) bool) {
	var last domain.SessionState
	first := true
	for {
		select {
		case state, ok := <-updates:
			if !ok {
				return
			}
			if !emit(outboundMessage{Type: "state", Payload: statePayload{SessionState: state, Clock: app.FormatClock(state.RemainingSeconds)}}) {
				return
			}
			changed := first || state.Generation != last.Generation || state.Phase != last.Phase
			if state.Phase == domain.PhaseActive && (changed || state.QuestionIndex != last.QuestionIndex) {
				if q, ok := ctrl.QuestionAt(state.QuestionIndex); ok {
					emit(outboundMessage{Type: "question", Payload: questionOf(q, state)})
				}
			}
			if state.Phase == domain.PhaseFinished && changed {
				emit(outboundMessage{Type: "finished", Payload: finishedPayload{Score: state.Score, QuestionCount: state.QuestionCount}})
			}
			if state.Phase == domain.PhaseFailed && changed {
				if err := ctrl.Err(); err != nil {
					emit(errorMessage(err))
				}
			}
			last, first = state, false
		case <-done:
			return
		}
	}
}

func questionOf(q domain.Question, state domain.SessionState) questionPayload {
	labels := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		labels = append(labels, opt.Label)
	}
	return questionPayload{Index: state.QuestionIndex, Total: state.QuestionCount, Text: q.Text, Options: labels}
}

func errorMessage(err error) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
}
