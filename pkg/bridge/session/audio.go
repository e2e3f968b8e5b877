package session

import (
	"encoding/base64"
	"encoding/json"

	"github.com/soundline/voicebridge/pkg/bridge/protocol"
)

// ForwardCallerAudio encodes a raw binary caller-audio frame and
// enqueues it for the upstream input buffer. Used by the plain web
// transport where frames arrive as binary PCM.
func (s *Session) ForwardCallerAudio(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	s.enqueueAudioAppend(base64.StdEncoding.EncodeToString(pcm))
}

// HandleMediaFrame processes one enveloped ACS media frame. Non-audio
// kinds are ignored; audio frames flagged (or defaulted) silent are
// dropped so the upstream voice-activity detector only sees speech.
func (s *Session) HandleMediaFrame(data []byte) {
	frame, err := protocol.ParseInboundMediaFrame(data)
	if err != nil {
		s.logger.Warn("downstream media frame rejected", "error", err)
		return
	}
	if frame.Kind != "AudioData" || frame.AudioData == nil {
		return
	}
	if frame.AudioData.IsSilent() {
		return
	}
	if frame.AudioData.Data == "" {
		return
	}
	s.enqueueAudioAppend(frame.AudioData.Data)
}

func (s *Session) enqueueAudioAppend(audioB64 string) {
	msg, err := json.Marshal(protocol.NewInputAudioBufferAppend(audioB64))
	if err != nil {
		s.logger.Error("audio append failed to encode", "error", err)
		return
	}
	s.queue.Enqueue(msg)
}

// forwardAudioDelta delivers one assistant audio fragment downstream in
// the framing the transport expects.
func (s *Session) forwardAudioDelta(deltaB64 string) {
	if s.rawAudio {
		audio, err := base64.StdEncoding.DecodeString(deltaB64)
		if err != nil {
			s.logger.Warn("audio delta rejected", "error", err)
			return
		}
		if err := s.down.SendBinary(audio); err != nil {
			s.logger.Warn("downstream audio send failed", "error", err)
		}
		return
	}

	payload, err := json.Marshal(protocol.NewAudioDataMessage(deltaB64))
	if err != nil {
		s.logger.Error("audio envelope failed to encode", "error", err)
		return
	}
	if err := s.down.SendText(payload); err != nil {
		s.logger.Warn("downstream audio send failed", "error", err)
	}
}

// stopDownstreamAudio tells the downstream transport to cut playback
// immediately on barge-in. The control frame goes out as text in both
// modes; web clients that only consume binary audio ignore it.
func (s *Session) stopDownstreamAudio() {
	payload, err := json.Marshal(protocol.NewStopAudioMessage())
	if err != nil {
		s.logger.Error("stop audio failed to encode", "error", err)
		return
	}
	if err := s.down.SendText(payload); err != nil {
		s.logger.Warn("downstream stop send failed", "error", err)
	}
}

// sendTranscript forwards a final assistant transcript downstream.
func (s *Session) sendTranscript(text string) {
	if text == "" {
		return
	}
	payload, err := json.Marshal(protocol.NewTranscriptionMessage(text))
	if err != nil {
		s.logger.Error("transcript failed to encode", "error", err)
		return
	}
	if err := s.down.SendText(payload); err != nil {
		s.logger.Warn("downstream transcript send failed", "error", err)
	}
}
