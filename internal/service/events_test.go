// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"testing"
	"time"

	"github.com/olegiv/wingsite/internal/model"
	"github.com/olegiv/wingsite/internal/testutil"
)

func TestLogEvent(t *testing.T) {
	s := testutil.TestStore(t)
	svc := NewEventService(s)
	ctx := context.Background()

	userID := int64(123)
	err := svc.LogEvent(ctx, model.EventLevelInfo, model.EventCategoryContent, "Content updated", &userID, "192.168.1.100", map[string]any{
		"type": "hero",
	})
	if err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	events, err := svc.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("event count = %d, want 1", len(events))
	}

	e := events[0]
	if e.Level != "info" {
		t.Errorf("level = %q, want %q", e.Level, "info")
	}
	if e.Category != "content" {
		t.Errorf("category = %q, want %q", e.Category, "content")
	}
	if e.UserID == nil || *e.UserID != 123 {
		t.Errorf("user_id = %v, want 123", e.UserID)
	}
	if e.Metadata != `{"type":"hero"}` {
		t.Errorf("metadata = %q, want %q", e.Metadata, `{"type":"hero"}`)
	}
	if e.IPAddress != "192.168.1.100" {
		t.Errorf("ip = %q", e.IPAddress)
	}
}

func TestLogEvent_NilUserIDAndMetadata(t *testing.T) {
	s := testutil.TestStore(t)
	svc := NewEventService(s)
	ctx := context.Background()

	if err := svc.LogEvent(ctx, model.EventLevelWarning, model.EventCategorySystem, "No user", nil, "", nil); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	events, _ := svc.List(ctx, "", 0)
	if len(events) != 1 {
		t.Fatalf("event count = %d, want 1", len(events))
	}
	if events[0].UserID != nil {
		t.Error("user_id should be NULL")
	}
	if events[0].Metadata != "{}" {
		t.Errorf("metadata = %q, want {}", events[0].Metadata)
	}
}

func TestCategoryHelpers(t *testing.T) {
	tests := []struct {
		name     string
		logFn    func(*EventService, context.Context) error
		category string
	}{
		{"content", func(svc *EventService, ctx context.Context) error {
			return svc.LogContentEvent(ctx, model.EventLevelInfo, "Content updated", nil, "", nil)
		}, model.EventCategoryContent},
		{"user", func(svc *EventService, ctx context.Context) error {
			return svc.LogUserEvent(ctx, model.EventLevelInfo, "User created", nil, "", nil)
		}, model.EventCategoryUser},
		{"config", func(svc *EventService, ctx context.Context) error {
			return svc.LogConfigEvent(ctx, model.EventLevelInfo, "Config updated", nil, "", nil)
		}, model.EventCategoryConfig},
		{"email", func(svc *EventService, ctx context.Context) error {
			return svc.LogEmailEvent(ctx, model.EventLevelError, "Send failed", nil, "", nil)
		}, model.EventCategoryEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewEventService(testutil.TestStore(t))
			ctx := context.Background()
			if err := tt.logFn(svc, ctx); err != nil {
				t.Fatalf("log failed: %v", err)
			}
			events, err := svc.List(ctx, tt.category, 10)
			if err != nil || len(events) != 1 {
				t.Fatalf("List(%s) = %d events, %v", tt.category, len(events), err)
			}
		})
	}
}

func TestDeleteOldEvents(t *testing.T) {
	s := testutil.TestStore(t)
	svc := NewEventService(s)
	ctx := context.Background()

	_ = svc.LogEvent(ctx, model.EventLevelInfo, model.EventCategorySystem, "recent", nil, "", nil)

	n, err := svc.DeleteOldEvents(ctx, time.Hour)
	if err != nil {
		t.Fatalf("DeleteOldEvents failed: %v", err)
	}
	if n != 0 {
		t.Errorf("deleted %d recent events, want 0", n)
	}

	n, err = svc.DeleteOldEvents(ctx, -time.Hour)
	if err != nil {
		t.Fatalf("DeleteOldEvents failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d events, want 1", n)
	}
}
