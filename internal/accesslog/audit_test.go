package accesslog

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

var testTime = time.Date(2024, 1, 15, 14, 32, 5, 0, time.UTC)

func TestEventFormat_OK(t *testing.T) {
	e := &Event{
		Timestamp:     testTime,
		PeerAddr:      "10.0.0.5:51322",
		Username:      "alice",
		Method:        "GET",
		RequestTarget: "/v2/version",
		Backend:       "server1",
		StatusCode:    200,
		ResponseBytes: 512,
		Duration:      12300 * time.Microsecond,
		Disposition:   "OK",
	}

	got := e.Format()
	want := `2024-01-15T14:32:05Z peer=10.0.0.5:51322 user="alice" method=GET target="/v2/version" backend=server1 status=200 bytes=512 duration=12.3ms disposition="OK"`
	if got != want {
		t.Errorf("Format() =\n  got:  %q\n  want: %q", got, want)
	}
}

func TestEventFormat_AuthFail_NoUserNoBackend(t *testing.T) {
	e := &Event{
		Timestamp:     testTime,
		PeerAddr:      "10.0.0.9:4000",
		Username:      "",
		ResponseBytes: 0,
		Duration:      time.Millisecond,
		Disposition:   "AUTH-FAIL",
	}

	got := e.Format()
	want := `2024-01-15T14:32:05Z peer=10.0.0.9:4000 user="" bytes=0 duration=1.0ms disposition="AUTH-FAIL"`
	if got != want {
		t.Errorf("Format() =\n  got:  %q\n  want: %q", got, want)
	}
}

func TestEventFormat_DenyDisposition(t *testing.T) {
	e := &Event{
		Timestamp:   testTime,
		PeerAddr:    "10.0.0.5:51322",
		Username:    "bob",
		Method:      "DELETE",
		Disposition: "DENY rule-3",
	}

	got := e.Format()
	if !strings.Contains(got, `disposition="DENY rule-3"`) {
		t.Errorf("Format() = %q, want disposition DENY rule-3", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     string
	}{
		{100 * time.Millisecond, "100.0ms"},
		{999 * time.Millisecond, "999.0ms"},
		{1 * time.Second, "1.0s"},
		{45 * time.Second, "45.0s"},
		{90 * time.Second, "1m30s"},
	}

	for _, tc := range tests {
		got := formatDuration(tc.duration)
		if got != tc.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.duration, got, tc.want)
		}
	}
}

func TestLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	e := &Event{
		Timestamp:     testTime,
		PeerAddr:      "127.0.0.1:9999",
		Username:      "carol",
		Method:        "GET",
		RequestTarget: "/v2/projects",
		Backend:       "lab1",
		StatusCode:    200,
		ResponseBytes: 128,
		Duration:      5 * time.Millisecond,
		Disposition:   "OK",
	}

	if err := logger.Log(e); err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	got := buf.String()
	if !strings.HasSuffix(got, "\n") {
		t.Error("expected trailing newline")
	}
	if !strings.Contains(got, "disposition=\"OK\"") {
		t.Errorf("Log() wrote %q, missing disposition", got)
	}
}

func TestLogger_NilLogger(t *testing.T) {
	var logger *Logger

	if err := logger.Log(&Event{Timestamp: testTime}); err != nil {
		t.Errorf("nil logger should return nil error, got %v", err)
	}
}

func TestLogger_NilWriter(t *testing.T) {
	logger := &Logger{w: nil}

	if err := logger.Log(&Event{Timestamp: testTime}); err != nil {
		t.Errorf("nil writer should return nil error, got %v", err)
	}
}

func TestLogger_LogMultipleEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	events := []*Event{
		{Timestamp: testTime, PeerAddr: "a:1", Disposition: "OK"},
		{Timestamp: testTime, PeerAddr: "b:2", Disposition: "AUTH-FAIL"},
		{Timestamp: testTime, PeerAddr: "c:3", Disposition: "IDLE-TIMEOUT"},
	}
	for _, e := range events {
		if err := logger.Log(e); err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d", len(lines))
	}
}
