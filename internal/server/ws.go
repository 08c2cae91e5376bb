package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ShayCichocki/anvil/internal/orchestrator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// The API binds to localhost by default; origin enforcement
		// belongs to whatever fronts it elsewhere.
		return true
	},
}

// answerFrame is the only inbound websocket message: a human answer
// to a published question.
type answerFrame struct {
	JobID      string `json:"job_id"`
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// hub fans engine events out to every connected websocket client.
type hub struct {
	engine *orchestrator.Engine
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan orchestrator.Event
}

func newHub(engine *orchestrator.Engine, logger *zap.Logger) *hub {
	return &hub{
		engine:  engine,
		logger:  logger,
		clients: make(map[*websocket.Conn]chan orchestrator.Event),
	}
}

// run consumes the engine event stream until it closes or ctx is
// done. Slow clients lose events rather than stalling the stream.
func (h *hub) run(ctx context.Context) {
	events := h.engine.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			h.mu.Lock()
			for conn, ch := range h.clients {
				select {
				case ch <- event:
				default:
					h.logger.Debug("websocket client lagging, event dropped",
						zap.String("remote", conn.RemoteAddr().String()))
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *hub) handleWebsocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ch := make(chan orchestrator.Event, 64)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()

	h.logger.Info("websocket client connected",
		zap.String("remote", conn.RemoteAddr().String()))

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	done := make(chan struct{})
	go h.readAnswers(conn, done)

	for {
		select {
		case <-done:
			return
		case event := <-ch:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

// readAnswers consumes inbound frames until the client disconnects.
// Malformed frames and rejected answers are reported back but never
// break the connection.
func (h *hub) readAnswers(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		var frame answerFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		if frame.JobID == "" || frame.QuestionID == "" || frame.Answer == "" {
			continue
		}
		if err := h.engine.SubmitAnswer(frame.JobID, frame.QuestionID, frame.Answer); err != nil {
			h.logger.Debug("websocket answer rejected",
				zap.String("job_id", frame.JobID),
				zap.String("question_id", frame.QuestionID),
				zap.Error(err))
		}
	}
}
