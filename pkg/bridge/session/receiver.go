package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gorilla/websocket"

	"github.com/soundline/voicebridge/pkg/bridge/protocol"
)

// receiverLoop is the sole reader on the upstream socket. Events are
// handled sequentially on this goroutine so that ordering-sensitive
// pairs (speech_started before the next audio delta, tool result before
// its continuation) cannot be reordered.
func (s *Session) receiverLoop(ctx context.Context) {
	defer s.wg.Done()
	// Receiver exit also stops the sender: a half-dead session is not
	// worth keeping.
	defer s.cancel()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Info("upstream closed", "reason", err)
			} else {
				s.logger.Warn("upstream read failed", "error", err)
			}
			return
		}

		event, err := protocol.DecodeServerEvent(data)
		if err != nil {
			var de *protocol.DecodeError
			if errors.As(err, &de) {
				s.logger.Error("upstream frame rejected", "kind", de.Kind, "error", de.Message)
			} else {
				s.logger.Error("upstream frame rejected", "error", err)
			}
			return
		}
		s.handleEvent(ctx, event)
	}
}

func (s *Session) handleEvent(ctx context.Context, event protocol.ServerEvent) {
	switch e := event.(type) {
	case protocol.SessionCreated:
		s.logger.Info("upstream session created", "session_id", e.SessionID)
	case protocol.InputAudioBufferCleared:
		s.logger.Info("input audio buffer cleared")
	case protocol.SpeechStarted:
		s.logger.Info("caller speech started", "audio_start_ms", e.AudioStartMS)
		s.stopDownstreamAudio()
	case protocol.SpeechStopped:
		s.logger.Info("caller speech stopped")
	case protocol.TranscriptionCompleted:
		s.logger.Info("caller transcript", "text", e.Transcript)
	case protocol.TranscriptionFailed:
		s.logger.Warn("caller transcription failed", "detail", string(e.Detail))
	case protocol.ResponseDone:
		if len(e.StatusDetails) > 0 {
			s.logger.Info("response done", "response_id", e.ResponseID, "status_details", string(e.StatusDetails))
		} else {
			s.logger.Info("response done", "response_id", e.ResponseID)
		}
	case protocol.FunctionCallArgumentsDone:
		s.handleToolCall(ctx, e)
	case protocol.AudioTranscriptDone:
		s.logger.Info("assistant transcript", "text", e.Transcript)
		s.sendTranscript(e.Transcript)
	case protocol.AudioDelta:
		s.forwardAudioDelta(e.Delta)
	case protocol.ServerErrorEvent:
		// Upstream error events are diagnostic; the connection itself
		// decides whether the session survives.
		s.logger.Error("upstream error event", "event", string(e.Raw))
	case protocol.UnknownEvent:
		s.logger.Debug("unhandled upstream event", "type", e.Type)
	default:
		s.logger.Debug("unhandled upstream event")
	}
}

// handleToolCall dispatches the tool and enqueues the result pair. The
// conversation item and its response.create continuation go into the
// queue as one atomic batch so no other producer can slip between them.
func (s *Session) handleToolCall(ctx context.Context, call protocol.FunctionCallArgumentsDone) {
	s.logger.Info("tool call", "tool", call.Name, "call_id", call.CallID)

	output := s.router.Dispatch(ctx, call.Name, call.Arguments)

	item, err := json.Marshal(protocol.NewFunctionCallOutput(call.CallID, output))
	if err != nil {
		s.logger.Error("tool result failed to encode", "call_id", call.CallID, "error", err)
		return
	}
	continuation, err := json.Marshal(protocol.NewResponseCreate())
	if err != nil {
		s.logger.Error("response.create failed to encode", "error", err)
		return
	}
	s.queue.Enqueue(item, continuation)
}
