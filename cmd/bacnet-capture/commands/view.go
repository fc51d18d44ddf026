// Package commands implements the bacnet-capture CLI commands.
package commands

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bacstack/bacnet-go/pkg/capture"
)

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event capture.Event) {
	// Header line: timestamp [conn:id] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	connID := shortenConnID(event.ConnectionID)

	var typeLabel string
	switch {
	case event.Frame != nil:
		typeLabel = "Frame"
	case event.Message != nil:
		typeLabel = event.Message.Type.String()
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	dir := event.Direction.String()
	if event.Category != capture.CategoryMessage {
		dir = "-"
	}
	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s\n", ts, connID, dir, event.Layer.String(), typeLabel)
	if event.RemoteAddr != "" {
		fmt.Fprintf(w, "  Peer: %s (%s)\n", event.RemoteAddr, event.LocalRole)
	}

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Message != nil:
		formatMessageDetails(w, event.Message)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatFrameDetails(w io.Writer, frame *capture.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatMessageDetails(w io.Writer, msg *capture.MessageEvent) {
	fmt.Fprintf(w, "  InvokeID: %d\n", msg.InvokeID)

	switch msg.Type {
	case capture.MessageTypeRequest:
		if msg.Service != nil {
			fmt.Fprintf(w, "  Service: %s\n", msg.Service.String())
		}
		if msg.Device != nil {
			fmt.Fprintf(w, "  Device: %d\n", *msg.Device)
		}

	case capture.MessageTypeResponse:
		if msg.Status != nil {
			fmt.Fprintf(w, "  Status: %s (%d)\n", msg.Status.String(), *msg.Status)
		}
		if msg.ProcessingTime != nil {
			fmt.Fprintf(w, "  Duration: %s\n", formatDuration(*msg.ProcessingTime))
		}
	}

	if msg.Payload != nil {
		fmt.Fprintf(w, "  Payload: %v\n", msg.Payload)
	}
}

func formatStateChangeDetails(w io.Writer, sc *capture.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, e *capture.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", e.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", e.Message)
	if e.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", e.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseLayerFlag parses a layer name (case-insensitive).
func ParseLayerFlag(s string) (capture.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return capture.LayerTransport, nil
	case "wire":
		return capture.LayerWire, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport or wire)", s)
	}
}

// ParseDirectionFlag parses a direction name (case-insensitive).
func ParseDirectionFlag(s string) (capture.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return capture.DirectionIn, nil
	case "out":
		return capture.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category name (case-insensitive).
func ParseCategoryFlag(s string) (capture.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return capture.CategoryMessage, nil
	case "state":
		return capture.CategoryState, nil
	case "error":
		return capture.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, state or error)", s)
	}
}

// RunView prints every event of the capture at path matching filter.
func RunView(path string, filter capture.Filter, output io.Writer) error {
	reader, err := capture.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
}
