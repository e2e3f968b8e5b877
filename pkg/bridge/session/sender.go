package session

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// senderLoop is the sole writer on the upstream socket once Connect has
// returned. It drains the dispatch queue in FIFO order and exits when
// the queue closes, the context is canceled, or a write fails.
func (s *Session) senderLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		msg, ok := s.queue.Dequeue(ctx)
		if !ok {
			return
		}
		if c, isConn := s.conn.(*websocket.Conn); isConn && s.cfg.WriteTimeout > 0 {
			_ = c.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		}
		if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("upstream write failed", "error", err)
			}
			return
		}
	}
}
