package dto

import (
	"agri-assistant-be/pkg/agri/compose"
	"agri-assistant-be/pkg/store"
)

type ChatRequest struct {
	SessionId string        `json:"session_id" validate:"required"`
	Message   string        `json:"message" validate:"required"`
	Context   store.Context `json:"context,omitempty"`
}

type ChatResponse struct {
	SessionId   string            `json:"session_id"`
	Reply       string            `json:"reply"`
	Followup    string            `json:"followup,omitempty"`
	Sections    *compose.Sections `json:"sections,omitempty"`
	Diagnostics []string          `json:"diagnostics,omitempty"`
}

type ChatHistoryResponse struct {
	SessionId string           `json:"session_id"`
	Context   store.Context    `json:"context"`
	History   []store.Exchange `json:"history"`
}

// TurnCompletedMessage is the event payload published after each turn.
type TurnCompletedMessage struct {
	TurnId     string `json:"turn_id"`
	SessionId  string `json:"session_id"`
	Crop       string `json:"crop,omitempty"`
	Region     string `json:"region,omitempty"`
	Simulated  bool   `json:"simulated"`
	DurationMs int64  `json:"duration_ms"`
}
