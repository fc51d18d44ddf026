package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bacstack/bacnet-go/pkg/capture"
	"github.com/bacstack/bacnet-go/pkg/wire"
)

func TestCollectStats(t *testing.T) {
	path := createTestCaptureFile(t, sampleEvents())

	reader, err := capture.NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	stats, err := CollectStats(reader)
	if err != nil {
		t.Fatalf("CollectStats failed: %v", err)
	}

	if stats.TotalEvents != 5 {
		t.Errorf("TotalEvents = %d, want 5", stats.TotalEvents)
	}
	if got := stats.EventsByLayer[capture.LayerWire]; got != 3 {
		t.Errorf("wire events = %d, want 3", got)
	}
	if got := stats.EventsByCategory[capture.CategoryMessage]; got != 3 {
		t.Errorf("message events = %d, want 3", got)
	}
	if got := stats.EventsByDirection[capture.DirectionOut]; got != 2 {
		t.Errorf("outgoing messages = %d, want 2", got)
	}
	if got := stats.RequestsByService[wire.ServiceReadPropertyMultiple]; got != 1 {
		t.Errorf("RPM requests = %d, want 1", got)
	}
	if got := stats.RequestsByDevice[1200]; got != 1 {
		t.Errorf("device 1200 requests = %d, want 1", got)
	}
	if got := stats.ResponsesByStatus[wire.StatusSuccess]; got != 1 {
		t.Errorf("success responses = %d, want 1", got)
	}
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
	if len(stats.Connections) != 1 {
		t.Fatalf("Connections = %d, want 1", len(stats.Connections))
	}
	conn := stats.Connections["abc12345-0000"]
	if conn.Events != 5 || conn.RemoteAddr != "10.0.0.20:47808" {
		t.Errorf("connection stats = %+v", conn)
	}
	if d := stats.TimeRange.End.Sub(stats.TimeRange.Start); d != 4*time.Millisecond {
		t.Errorf("time range = %v, want 4ms", d)
	}
}

func TestRunStatsOutput(t *testing.T) {
	path := createTestCaptureFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"Total Events: 5",
		"TRANSPORT:",
		"WIRE:",
		"STATE:",
		"ReadPropertyMultiple:",
		"SUCCESS:",
		"Connections: 1",
		"[abc12345] 5 events",
		"Errors: 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestRunStatsEmpty(t *testing.T) {
	path := createTestCaptureFile(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Total Events: 0") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}
