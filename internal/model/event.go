// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth    = "auth"
	EventCategoryContent = "content"
	EventCategoryUser    = "user"
	EventCategoryConfig  = "config"
	EventCategoryEmail   = "email"
	EventCategorySystem  = "system"
)

// Event represents a system event log entry.
type Event struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	UserID    *int64    `json:"userId,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	Metadata  string    `json:"metadata"` // JSON object
	CreatedAt time.Time `json:"createdAt"`
}

// InboundMessage is an email-provider event received on the inbound webhook.
type InboundMessage struct {
	ID         string    `json:"id"`
	EventType  string    `json:"eventType"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	Payload    string    `json:"payload"` // raw JSON as received
	ReceivedAt time.Time `json:"receivedAt"`
}
