// Package protocol defines the wire shapes the bridge speaks: the Voice
// Live WebSocket message types on the upstream side and the ACS media
// streaming envelopes on the downstream side.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeError reports a malformed upstream frame. The receiver loop
// treats it as unrecoverable: a corrupt stream cannot be resynced.
type DecodeError struct {
	Kind    string
	Message string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Kind) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Kind)
}

func decodeErr(kind, message string) *DecodeError {
	return &DecodeError{Kind: kind, Message: message}
}

// --- Outbound messages (bridge -> Voice Live) ---

// SessionUpdate configures the upstream session right after connect.
type SessionUpdate struct {
	Type    string  `json:"type"`
	Session Session `json:"session"`
}

// Session is the session.update payload body.
type Session struct {
	Instructions               string         `json:"instructions"`
	Tools                      []ToolSchema   `json:"tools"`
	TurnDetection              *TurnDetection `json:"turn_detection,omitempty"`
	InputAudioNoiseReduction   *AudioFeature  `json:"input_audio_noise_reduction,omitempty"`
	InputAudioEchoCancellation *AudioFeature  `json:"input_audio_echo_cancellation,omitempty"`
	Voice                      *Voice         `json:"voice,omitempty"`
}

// ToolSchema declares one function tool the model may call.
type ToolSchema struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ParameterSchema is the JSON-schema object describing tool arguments.
type ParameterSchema struct {
	Type       string               `json:"type"`
	Properties map[string]Parameter `json:"properties"`
	Required   []string             `json:"required"`
}

type Parameter struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms"`
	SilenceDurationMS int     `json:"silence_duration_ms"`
	RemoveFillerWords bool    `json:"remove_filler_words"`
}

type AudioFeature struct {
	Type string `json:"type"`
}

type Voice struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Temperature float64 `json:"temperature"`
}

// ResponseCreate asks the model to begin (or continue) a response.
type ResponseCreate struct {
	Type string `json:"type"`
}

// NewResponseCreate returns the response.create control message.
func NewResponseCreate() ResponseCreate {
	return ResponseCreate{Type: "response.create"}
}

// InputAudioBufferAppend carries one base64 caller-audio chunk upstream.
type InputAudioBufferAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// NewInputAudioBufferAppend wraps a base64 payload without re-encoding it.
func NewInputAudioBufferAppend(audioB64 string) InputAudioBufferAppend {
	return InputAudioBufferAppend{Type: "input_audio_buffer.append", Audio: audioB64}
}

// ConversationItemCreate returns a tool-call result to the model.
type ConversationItemCreate struct {
	Type string             `json:"type"`
	Item FunctionCallOutput `json:"item"`
}

type FunctionCallOutput struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

// NewFunctionCallOutput builds the conversation item carrying a serialized
// tool result for the given call identifier.
func NewFunctionCallOutput(callID, output string) ConversationItemCreate {
	return ConversationItemCreate{
		Type: "conversation.item.create",
		Item: FunctionCallOutput{
			Type:   "function_call_output",
			CallID: callID,
			Output: output,
		},
	}
}

// --- Inbound events (Voice Live -> bridge) ---

// ServerEvent is a decoded upstream event, tagged by its wire kind.
type ServerEvent interface {
	eventType() string
}

type SessionCreated struct {
	SessionID string
}

func (SessionCreated) eventType() string { return "session.created" }

type InputAudioBufferCleared struct{}

func (InputAudioBufferCleared) eventType() string { return "input_audio_buffer.cleared" }

type SpeechStarted struct {
	AudioStartMS int64
}

func (SpeechStarted) eventType() string { return "input_audio_buffer.speech_started" }

type SpeechStopped struct{}

func (SpeechStopped) eventType() string { return "input_audio_buffer.speech_stopped" }

type TranscriptionCompleted struct {
	Transcript string
}

func (TranscriptionCompleted) eventType() string {
	return "conversation.item.input_audio_transcription.completed"
}

type TranscriptionFailed struct {
	Detail json.RawMessage
}

func (TranscriptionFailed) eventType() string {
	return "conversation.item.input_audio_transcription.failed"
}

type ResponseDone struct {
	ResponseID    string
	StatusDetails json.RawMessage
}

func (ResponseDone) eventType() string { return "response.done" }

// FunctionCallArgumentsDone signals a completed tool call. Arguments may
// arrive as a JSON object or as a string-encoded object; the router
// tolerates both.
type FunctionCallArgumentsDone struct {
	Name      string
	CallID    string
	Arguments json.RawMessage
}

func (FunctionCallArgumentsDone) eventType() string { return "response.function_call_arguments.done" }

type AudioTranscriptDone struct {
	Transcript string
}

func (AudioTranscriptDone) eventType() string { return "response.audio_transcript.done" }

type AudioDelta struct {
	Delta string
}

func (AudioDelta) eventType() string { return "response.audio.delta" }

// ServerErrorEvent is logged but does not by itself terminate the
// receiver loop.
type ServerErrorEvent struct {
	Raw json.RawMessage
}

func (ServerErrorEvent) eventType() string { return "error" }

// UnknownEvent carries any kind the bridge does not handle.
type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (e UnknownEvent) eventType() string { return e.Type }

// DecodeServerEvent parses one upstream text frame into its typed event.
func DecodeServerEvent(data []byte) (ServerEvent, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, decodeErr("", "invalid json frame")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, decodeErr("", "frame missing type")
	}

	switch typ {
	case "session.created":
		var msg struct {
			Session struct {
				ID string `json:"id"`
			} `json:"session"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, decodeErr(typ, "invalid session.created frame")
		}
		return SessionCreated{SessionID: msg.Session.ID}, nil
	case "input_audio_buffer.cleared":
		return InputAudioBufferCleared{}, nil
	case "input_audio_buffer.speech_started":
		var msg struct {
			AudioStartMS int64 `json:"audio_start_ms"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, decodeErr(typ, "invalid speech_started frame")
		}
		return SpeechStarted{AudioStartMS: msg.AudioStartMS}, nil
	case "input_audio_buffer.speech_stopped":
		return SpeechStopped{}, nil
	case "conversation.item.input_audio_transcription.completed":
		var msg struct {
			Transcript string `json:"transcript"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, decodeErr(typ, "invalid transcription frame")
		}
		return TranscriptionCompleted{Transcript: msg.Transcript}, nil
	case "conversation.item.input_audio_transcription.failed":
		var msg struct {
			Error json.RawMessage `json:"error"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, decodeErr(typ, "invalid transcription failure frame")
		}
		return TranscriptionFailed{Detail: msg.Error}, nil
	case "response.done":
		var msg struct {
			Response struct {
				ID            string          `json:"id"`
				StatusDetails json.RawMessage `json:"status_details"`
			} `json:"response"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, decodeErr(typ, "invalid response.done frame")
		}
		return ResponseDone{ResponseID: msg.Response.ID, StatusDetails: msg.Response.StatusDetails}, nil
	case "response.function_call_arguments.done":
		var msg struct {
			Name      string          `json:"name"`
			CallID    string          `json:"call_id"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, decodeErr(typ, "invalid function call frame")
		}
		if strings.TrimSpace(msg.CallID) == "" {
			return nil, decodeErr(typ, "function call frame missing call_id")
		}
		return FunctionCallArgumentsDone{Name: msg.Name, CallID: msg.CallID, Arguments: msg.Arguments}, nil
	case "response.audio_transcript.done":
		var msg struct {
			Transcript string `json:"transcript"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, decodeErr(typ, "invalid transcript frame")
		}
		return AudioTranscriptDone{Transcript: msg.Transcript}, nil
	case "response.audio.delta":
		var msg struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, decodeErr(typ, "invalid audio delta frame")
		}
		return AudioDelta{Delta: msg.Delta}, nil
	case "error":
		return ServerErrorEvent{Raw: append(json.RawMessage(nil), data...)}, nil
	default:
		return UnknownEvent{Type: typ, Raw: append(json.RawMessage(nil), data...)}, nil
	}
}
