// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package webhook receives inbound events from the email provider.
package webhook

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrInvalidPayload is returned for a body that is not a provider event.
var ErrInvalidPayload = errors.New("invalid webhook payload")

// Event is the provider's event envelope.
type Event struct {
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}

// EmailEventData is the part of an email event's data that is indexed.
type EmailEventData struct {
	EmailID string    `json:"email_id"`
	From    string    `json:"from"`
	To      addresses `json:"to"`
	Subject string    `json:"subject"`
}

// addresses accepts either a single address or a list.
type addresses []string

func (a *addresses) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		if one != "" {
			*a = addresses{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*a = many
	return nil
}

func (a addresses) String() string {
	return strings.Join(a, ", ")
}

// ParseEvent decodes an event envelope and its email fields. Data that does
// not look like an email event leaves the email fields empty.
func ParseEvent(body []byte) (Event, EmailEventData, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, EmailEventData{}, ErrInvalidPayload
	}
	ev.Type = strings.TrimSpace(ev.Type)
	if ev.Type == "" {
		return ev, EmailEventData{}, ErrInvalidPayload
	}

	var data EmailEventData
	if len(ev.Data) > 0 {
		_ = json.Unmarshal(ev.Data, &data)
	}
	return ev, data, nil
}
