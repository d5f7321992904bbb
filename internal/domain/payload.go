package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// PayloadKind tags which request shape a RequestPayload carries.
type PayloadKind string

const (
	PayloadChat   PayloadKind = "chat"
	PayloadImage  PayloadKind = "image"
	PayloadAudio  PayloadKind = "audio"
	PayloadVideo  PayloadKind = "video"
	PayloadOpaque PayloadKind = "opaque"
)

// ChatMessage is one role/content pair of a chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a chat completion call.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// ImageRequest is an image generation call.
type ImageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Size    string `json:"size,omitempty"`
	N       int    `json:"n,omitempty"`
	Quality string `json:"quality,omitempty"`
}

// AudioRequest is a speech or audio generation call.
type AudioRequest struct {
	Model  string `json:"model"`
	Input  string `json:"input,omitempty"`
	Prompt string `json:"prompt,omitempty"`
	Voice  string `json:"voice,omitempty"`
}

// VideoRequest is a video generation call.
type VideoRequest struct {
	Model       string `json:"model"`
	Prompt      string `json:"prompt"`
	Duration    int    `json:"duration,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
}

// RequestPayload is a tagged union over the known call kinds. Shapes the
// workbench does not know are kept verbatim as PayloadOpaque.
//
// On the wire the payload is the plain request object; the kind is inferred
// when decoding and the original bytes are kept so re-encoding is lossless.
type RequestPayload struct {
	Kind  PayloadKind
	Chat  *ChatRequest
	Image *ImageRequest
	Audio *AudioRequest
	Video *VideoRequest

	raw json.RawMessage
}

// NewChatPayload wraps a chat request.
func NewChatPayload(req ChatRequest) RequestPayload {
	return RequestPayload{Kind: PayloadChat, Chat: &req}
}

// NewImagePayload wraps an image request.
func NewImagePayload(req ImageRequest) RequestPayload {
	return RequestPayload{Kind: PayloadImage, Image: &req}
}

// NewAudioPayload wraps an audio request.
func NewAudioPayload(req AudioRequest) RequestPayload {
	return RequestPayload{Kind: PayloadAudio, Audio: &req}
}

// NewVideoPayload wraps a video request.
func NewVideoPayload(req VideoRequest) RequestPayload {
	return RequestPayload{Kind: PayloadVideo, Video: &req}
}

// NewOpaquePayload keeps an unrecognized request body as-is.
func NewOpaquePayload(raw json.RawMessage) RequestPayload {
	return RequestPayload{Kind: PayloadOpaque, raw: append(json.RawMessage(nil), raw...)}
}

// ParseRequestPayload decodes a request body and infers its kind.
func ParseRequestPayload(data []byte) (RequestPayload, error) {
	var p RequestPayload
	if err := p.UnmarshalJSON(data); err != nil {
		return RequestPayload{}, err
	}
	return p, nil
}

// MarshalJSON implements json.Marshaler.
func (p RequestPayload) MarshalJSON() ([]byte, error) {
	if len(p.raw) > 0 {
		return p.raw, nil
	}
	switch p.Kind {
	case PayloadChat:
		return json.Marshal(p.Chat)
	case PayloadImage:
		return json.Marshal(p.Image)
	case PayloadAudio:
		return json.Marshal(p.Audio)
	case PayloadVideo:
		return json.Marshal(p.Video)
	}
	return []byte("null"), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *RequestPayload) UnmarshalJSON(data []byte) error {
	*p = RequestPayload{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if !json.Valid(trimmed) {
		return errors.New("request payload is not valid JSON")
	}
	p.raw = append(json.RawMessage(nil), trimmed...)
	p.Kind = PayloadOpaque

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil
	}

	switch inferKind(fields) {
	case PayloadChat:
		var req ChatRequest
		if json.Unmarshal(trimmed, &req) == nil {
			p.Kind, p.Chat = PayloadChat, &req
		}
	case PayloadAudio:
		var req AudioRequest
		if json.Unmarshal(trimmed, &req) == nil {
			p.Kind, p.Audio = PayloadAudio, &req
		}
	case PayloadVideo:
		var req VideoRequest
		if json.Unmarshal(trimmed, &req) == nil {
			p.Kind, p.Video = PayloadVideo, &req
		}
	case PayloadImage:
		var req ImageRequest
		if json.Unmarshal(trimmed, &req) == nil {
			p.Kind, p.Image = PayloadImage, &req
		}
	}
	return nil
}

func inferKind(fields map[string]json.RawMessage) PayloadKind {
	has := func(keys ...string) bool {
		for _, k := range keys {
			if _, ok := fields[k]; ok {
				return true
			}
		}
		return false
	}
	switch {
	case has("messages"):
		return PayloadChat
	case has("input", "voice"):
		return PayloadAudio
	case has("duration", "resolution", "aspect_ratio"):
		return PayloadVideo
	case has("prompt") && has("size", "n", "quality"):
		return PayloadImage
	default:
		return PayloadOpaque
	}
}

// Model returns the model the request targets, if any.
func (p RequestPayload) Model() string {
	switch p.Kind {
	case PayloadChat:
		return p.Chat.Model
	case PayloadImage:
		return p.Image.Model
	case PayloadAudio:
		return p.Audio.Model
	case PayloadVideo:
		return p.Video.Model
	}
	return p.opaqueString("model")
}

// Label derives a short human-readable name from the request content.
func (p RequestPayload) Label() string {
	var text string
	switch p.Kind {
	case PayloadChat:
		text = lastUserMessage(p.Chat.Messages)
	case PayloadImage:
		text = p.Image.Prompt
	case PayloadAudio:
		text = firstNonEmpty(p.Audio.Input, p.Audio.Prompt)
	case PayloadVideo:
		text = p.Video.Prompt
	default:
		text = p.opaqueString("prompt")
	}
	if label := truncateRunes(text, MaxLabelRunes); label != "" {
		return label
	}
	if model := p.Model(); model != "" {
		return model + " request"
	}
	return "API request"
}

func (p RequestPayload) opaqueString(key string) string {
	if len(p.raw) == 0 {
		return ""
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(p.raw, &fields); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(fields[key], &s); err != nil {
		return ""
	}
	return s
}

func lastUserMessage(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if strings.EqualFold(messages[i].Role, "user") {
			return messages[i].Content
		}
	}
	if len(messages) > 0 {
		return messages[len(messages)-1].Content
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncateRunes(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// ResponsePayload holds a raw response: either plain text or a JSON value.
type ResponsePayload struct {
	text string
	raw  json.RawMessage
}

// NewTextResponse wraps a plain-text response.
func NewTextResponse(text string) ResponsePayload {
	return ResponsePayload{text: text}
}

// ParseResponseBody keeps JSON bodies structured and everything else as text.
func ParseResponseBody(body []byte) ResponsePayload {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid(trimmed) {
		return ResponsePayload{raw: append(json.RawMessage(nil), trimmed...)}
	}
	return ResponsePayload{text: string(body)}
}

// IsEmpty reports whether there is nothing to display.
func (r ResponsePayload) IsEmpty() bool {
	if r.text != "" {
		return false
	}
	trimmed := bytes.TrimSpace(r.raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// IsJSON reports whether the response is a structured value.
func (r ResponsePayload) IsJSON() bool {
	return len(r.raw) > 0
}

// String returns the text, or the raw JSON for structured responses.
func (r ResponsePayload) String() string {
	if len(r.raw) > 0 {
		return string(r.raw)
	}
	return r.text
}

// MarshalJSON implements json.Marshaler.
func (r ResponsePayload) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	return json.Marshal(r.text)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *ResponsePayload) UnmarshalJSON(data []byte) error {
	*r = ResponsePayload{}
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return nil
	case trimmed[0] == '"':
		return json.Unmarshal(trimmed, &r.text)
	default:
		r.raw = append(json.RawMessage(nil), trimmed...)
		return nil
	}
}
