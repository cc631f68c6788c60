package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ffdc.sales_insights/pkg/tabular"
	"ffdc.sales_insights/pkg/typewriter"
)

const (
	FrameSQL     = "sql"
	FrameToken   = "token"
	FrameChart   = "chart"
	FrameNotice  = "notice"
	FrameError   = "error"
	FrameStopped = "stopped"
	FrameDone    = "done"

	ChartNotice = "Chart rendering coming soon!"

	maxQueued = 20
)

// Frame is one server to client websocket message.
type Frame struct {
	Type  string            `json:"type"`
	Data  string            `json:"data,omitempty"`
	Chart *tabular.BarChart `json:"chart,omitempty"`
}

type inbound struct {
	Message string `json:"message"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler streams answers over a websocket. Questions on one connection
// are answered in arrival order; "stop" cancels the one being streamed.
func WSHandler(asker Asker, tw *typewriter.Typewriter, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()
		fw := &frameWriter{conn: conn}

		ctx, cancelConn := context.WithCancel(context.Background())
		defer cancelConn()

		var (
			mu         sync.Mutex
			cancelCurr context.CancelFunc
		)
		questions := make(chan string, maxQueued)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for q := range questions {
				qctx, cancel := context.WithCancel(ctx)
				mu.Lock()
				cancelCurr = cancel
				mu.Unlock()

				err := streamAnswer(qctx, fw, asker, tw, q)

				mu.Lock()
				cancelCurr = nil
				mu.Unlock()
				cancel()

				if err != nil {
					logger.Info("websocket writer stopped", zap.Error(err))
					cancelConn()
					conn.Close()
					return
				}
			}
		}()

	read:
		for {
			if err := conn.SetReadDeadline(time.Now().Add(2 * time.Hour)); err != nil {
				logger.Error("SetReadDeadline failed", zap.Error(err))
				break
			}

			_, msg, err := conn.ReadMessage()
			if err != nil {
				logger.Info("websocket closed", zap.Error(err))
				break
			}

			var in inbound
			if err := json.Unmarshal(msg, &in); err != nil {
				logger.Warn("websocket message is not JSON", zap.Error(err))
				continue
			}
			if in.Message == "" {
				logger.Warn("missing or invalid 'message' field")
				continue
			}

			if in.Message == "stop" {
				mu.Lock()
				if cancelCurr != nil {
					cancelCurr()
				}
				mu.Unlock()
				continue
			}

			if ctx.Err() != nil {
				break
			}
			select {
			case questions <- in.Message:
			default:
				logger.Warn("websocket queue full, question dropped", zap.Int("queued", maxQueued))
				if err := fw.write(Frame{Type: FrameError, Data: "too many queued questions"}); err != nil {
					logger.Info("websocket writer stopped", zap.Error(err))
					break read
				}
			}
		}

		cancelConn()
		close(questions)
		wg.Wait()
	}
}

// frameWriter serializes writes from the answer worker and the read loop.
type frameWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (fw *frameWriter) write(f Frame) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if err := fw.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return err
	}
	return fw.conn.WriteJSON(f)
}

// streamAnswer only returns an error when the connection can no longer be
// written to.
func streamAnswer(ctx context.Context, fw *frameWriter, asker Asker, tw *typewriter.Typewriter, question string) error {
	res, err := asker.Ask(ctx, question)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fw.write(Frame{Type: FrameStopped})
		}
		return fw.write(Frame{Type: FrameError, Data: err.Error()})
	}

	if err := fw.write(Frame{Type: FrameSQL, Data: res.GeneratedSQL}); err != nil {
		return err
	}

	text, err := tabular.Pretty(res.Answer)
	if err != nil {
		return fw.write(Frame{Type: FrameError, Data: err.Error()})
	}

	var writeErr error
	err = tw.Type(ctx, text, func(s string) error {
		writeErr = fw.write(Frame{Type: FrameToken, Data: s})
		return writeErr
	})
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		return fw.write(Frame{Type: FrameStopped})
	}

	if res.Chart != nil {
		err = fw.write(Frame{Type: FrameChart, Chart: res.Chart})
	} else {
		err = fw.write(Frame{Type: FrameNotice, Data: ChartNotice})
	}
	if err != nil {
		return err
	}
	return fw.write(Frame{Type: FrameDone})
}
