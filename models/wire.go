package models

import "encoding/json"

// Wire shapes for the live inference WebSocket. Client messages carry exactly
// one of the optional payloads; same for server messages.

type ClientMessage struct {
	Setup         *SetupPayload  `json:"setup,omitempty"`
	RealtimeInput *RealtimeInput `json:"realtimeInput,omitempty"`
}

type SetupPayload struct {
	Model              string   `json:"model"`
	SystemInstruction  string   `json:"systemInstruction,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type RealtimeInput struct {
	MediaChunks []MediaChunk `json:"mediaChunks"`
}

// MediaChunk carries one base64-encoded media payload tagged with its mime
// type ("image/jpeg" or "audio/pcm;rate=16000").
type MediaChunk struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type ServerMessage struct {
	SetupComplete *SetupComplete   `json:"setupComplete,omitempty"`
	ServerContent *ServerContent   `json:"serverContent,omitempty"`
	ToolCall      *ToolCallPayload `json:"toolCall,omitempty"`
}

type SetupComplete struct{}

type ServerContent struct {
	ModelTurn    *ModelTurn `json:"modelTurn,omitempty"`
	TurnComplete bool       `json:"turnComplete,omitempty"`
}

type ModelTurn struct {
	Parts []Part `json:"parts"`
}

// Part is a tagged union: exactly one of Text, JSON, or FunctionCall is set
// in a well-formed message. Kind reports the active case.
type Part struct {
	Text         string          `json:"text,omitempty"`
	JSON         json.RawMessage `json:"json,omitempty"`
	FunctionCall *FunctionCall   `json:"functionCall,omitempty"`
}

type PartKind int

const (
	PartUnknown PartKind = iota
	PartText
	PartJSON
	PartFunctionCall
)

func (p Part) Kind() PartKind {
	switch {
	case p.FunctionCall != nil:
		return PartFunctionCall
	case len(p.JSON) > 0:
		return PartJSON
	case p.Text != "":
		return PartText
	}
	return PartUnknown
}

type ToolCallPayload struct {
	FunctionCalls []FunctionCall `json:"functionCalls"`
}

type FunctionCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}
