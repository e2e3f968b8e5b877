package protocol

import "encoding/json"

// --- Outbound envelopes (bridge -> ACS media stream) ---

// MediaMessage is the ACS media streaming envelope. AudioData and
// StopAudio are always present on the wire; exactly one is non-null,
// discriminated by Kind.
type MediaMessage struct {
	Kind      string         `json:"Kind"`
	AudioData *OutboundAudio `json:"AudioData"`
	StopAudio *StopAudio     `json:"StopAudio"`
}

type OutboundAudio struct {
	Data string `json:"Data"`
}

type StopAudio struct{}

// NewAudioDataMessage wraps a still-encoded base64 fragment for ACS.
func NewAudioDataMessage(dataB64 string) MediaMessage {
	return MediaMessage{Kind: "AudioData", AudioData: &OutboundAudio{Data: dataB64}}
}

// NewStopAudioMessage signals ACS to cut playback immediately (barge-in).
func NewStopAudioMessage() MediaMessage {
	return MediaMessage{Kind: "StopAudio", StopAudio: &StopAudio{}}
}

// TranscriptionMessage forwards a final assistant transcript downstream.
type TranscriptionMessage struct {
	Kind string `json:"Kind"`
	Text string `json:"Text"`
}

func NewTranscriptionMessage(text string) TranscriptionMessage {
	return TranscriptionMessage{Kind: "Transcription", Text: text}
}

// --- Inbound frames (ACS media stream -> bridge) ---

// InboundMediaFrame is a caller-audio frame from the ACS media stream.
type InboundMediaFrame struct {
	Kind      string        `json:"kind"`
	AudioData *InboundAudio `json:"audioData"`
}

// InboundAudio carries the caller audio chunk. A missing silent flag is
// treated as silent, matching the ACS contract.
type InboundAudio struct {
	Data   string `json:"data"`
	Silent *bool  `json:"silent"`
}

// IsSilent reports whether the frame should be dropped instead of being
// forwarded to the upstream voice-activity detector.
func (a *InboundAudio) IsSilent() bool {
	if a == nil || a.Silent == nil {
		return true
	}
	return *a.Silent
}

// ParseInboundMediaFrame decodes one downstream ACS text frame.
func ParseInboundMediaFrame(data []byte) (InboundMediaFrame, error) {
	var frame InboundMediaFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return InboundMediaFrame{}, decodeErr("media", "invalid media frame")
	}
	return frame, nil
}
