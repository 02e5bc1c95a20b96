package services

import (
	"testing"
	"time"

	"github.com/prizm-dev/prizm/internal/types"
)

func TestParseNaturalTimeResolvesRelativePhrase(t *testing.T) {
	now := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)

	got, err := ParseNaturalTime("tomorrow at 5pm", now)
	if err != nil {
		t.Fatalf("ParseNaturalTime: %v", err)
	}

	resolved := time.UnixMilli(got)
	if !resolved.After(now) {
		t.Fatalf("expected a time after %v, got %v", now, resolved)
	}
	if resolved.Day() != now.AddDate(0, 0, 1).Day() {
		t.Fatalf("expected tomorrow's date, got %v", resolved)
	}
}

func TestParseNaturalTimeRejectsUnrecognizedText(t *testing.T) {
	if _, err := ParseNaturalTime("blorp zigzag nonsense", time.Now()); err == nil {
		t.Fatal("expected an error for unrecognized text")
	}
}

func TestScheduleCreateFromText(t *testing.T) {
	s := newTestScope(t)
	svc := NewScheduleService(s)

	item, err := svc.CreateFromText("sess-1", "Call the vet", "in 2 hours", types.ScheduleReminder)
	if err != nil {
		t.Fatalf("CreateFromText: %v", err)
	}
	if item.StartTime == 0 {
		t.Fatal("expected resolved start time")
	}
}
