package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mash-protocol/mash-endpoint/pkg/log"
)

func readAll(t *testing.T, path string) []log.Event {
	t.Helper()
	reader, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer reader.Close()
	events, err := reader.Tail(0)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return events
}

func TestFilterBySession(t *testing.T) {
	events := buttonEvents()
	other := events[0]
	other.SessionID = "other-session"
	path := createTestLogFile(t, append(events, other))
	out := filepath.Join(t.TempDir(), "filtered.cbor")

	count, err := RunFilter(path, FilterOptions{Output: out, SessionID: "other-session"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 event, got %d", count)
	}
	got := readAll(t, out)
	if len(got) != 1 || got[0].SessionID != "other-session" {
		t.Errorf("unexpected filtered events: %+v", got)
	}
}

func TestFilterByTimeRangeAndEndpoint(t *testing.T) {
	path := createTestLogFile(t, buttonEvents())
	out := filepath.Join(t.TempDir(), "filtered.cbor")

	count, err := RunFilter(path, FilterOptions{
		Output:    out,
		TimeStart: testTime.Add(time.Second).Format(time.RFC3339),
		Endpoint:  "1",
	})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 events, got %d", count)
	}
	for _, e := range readAll(t, out) {
		if e.Endpoint != 1 || e.Timestamp.Before(testTime.Add(time.Second)) {
			t.Errorf("event outside filter: %+v", e)
		}
	}
}

func TestFilterByLayer(t *testing.T) {
	path := createTestLogFile(t, buttonEvents())
	out := filepath.Join(t.TempDir(), "filtered.cbor")

	count, err := RunFilter(path, FilterOptions{Output: out, Layer: "model"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 event, got %d", count)
	}
	if got := readAll(t, out); got[0].Attribute == nil {
		t.Errorf("expected the attribute event, got %+v", got[0])
	}
}

func TestBuildFilterErrors(t *testing.T) {
	tests := []struct {
		name string
		opts FilterOptions
	}{
		{"layer", FilterOptions{Layer: "transport"}},
		{"direction", FilterOptions{Direction: "up"}},
		{"category", FilterOptions{Category: "state"}},
		{"endpoint", FilterOptions{Endpoint: "70000"}},
		{"time-start", FilterOptions{TimeStart: "yesterday"}},
		{"time-end", FilterOptions{TimeEnd: "tomorrow"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildFilter(tt.opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseEndpoint(t *testing.T) {
	ep, err := parseEndpoint("0x10")
	if err != nil || ep != 16 {
		t.Errorf("parseEndpoint(0x10) = %d, %v", ep, err)
	}
}
