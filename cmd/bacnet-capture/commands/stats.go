package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/bacstack/bacnet-go/pkg/capture"
	"github.com/bacstack/bacnet-go/pkg/wire"
)

// Stats holds aggregate statistics about a capture.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[capture.Layer]int
	EventsByCategory  map[capture.Category]int
	EventsByDirection map[capture.Direction]int
	RequestsByService map[wire.Service]int
	ResponsesByStatus map[wire.Status]int
	RequestsByDevice  map[uint32]int
	Connections       map[string]*ConnectionStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// ConnectionStats holds statistics for a single connection.
type ConnectionStats struct {
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	RemoteAddr string
}

// CollectStats reads every event from r.
func CollectStats(r *capture.Reader) (*Stats, error) {
	stats := &Stats{
		EventsByLayer:     make(map[capture.Layer]int),
		EventsByCategory:  make(map[capture.Category]int),
		EventsByDirection: make(map[capture.Direction]int),
		RequestsByService: make(map[wire.Service]int),
		ResponsesByStatus: make(map[wire.Status]int),
		RequestsByDevice:  make(map[uint32]int),
		Connections:       make(map[string]*ConnectionStats),
	}

	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByLayer[event.Layer]++
		stats.EventsByCategory[event.Category]++
		if event.Category == capture.CategoryMessage {
			stats.EventsByDirection[event.Direction]++
		}

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		conn, ok := stats.Connections[event.ConnectionID]
		if !ok {
			conn = &ConnectionStats{
				FirstSeen:  event.Timestamp,
				LastSeen:   event.Timestamp,
				RemoteAddr: event.RemoteAddr,
			}
			stats.Connections[event.ConnectionID] = conn
		}
		conn.Events++
		if event.Timestamp.After(conn.LastSeen) {
			conn.LastSeen = event.Timestamp
		}

		if msg := event.Message; msg != nil {
			if msg.Service != nil {
				stats.RequestsByService[*msg.Service]++
			}
			if msg.Device != nil {
				stats.RequestsByDevice[*msg.Device]++
			}
			if msg.Status != nil {
				stats.ResponsesByStatus[*msg.Status]++
			}
		}
		if event.Error != nil {
			stats.Errors++
		}
	}
}

// RunStats analyzes the capture at path and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := capture.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	stats, err := CollectStats(reader)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== BACnet Protocol Capture Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []capture.Layer{capture.LayerTransport, capture.LayerWire} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []capture.Category{capture.CategoryMessage, capture.CategoryState, capture.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.RequestsByService) > 0 {
		fmt.Fprintln(w, "Requests by Service:")
		services := make([]wire.Service, 0, len(stats.RequestsByService))
		for s := range stats.RequestsByService {
			services = append(services, s)
		}
		sort.Slice(services, func(i, j int) bool { return services[i] < services[j] })
		for _, s := range services {
			fmt.Fprintf(w, "  %-24s %d\n", s.String()+":", stats.RequestsByService[s])
		}
		fmt.Fprintln(w)
	}

	if len(stats.ResponsesByStatus) > 0 {
		fmt.Fprintln(w, "Responses by Status:")
		statuses := make([]wire.Status, 0, len(stats.ResponsesByStatus))
		for s := range stats.ResponsesByStatus {
			statuses = append(statuses, s)
		}
		sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
		for _, s := range statuses {
			fmt.Fprintf(w, "  %-24s %d\n", s.String()+":", stats.ResponsesByStatus[s])
		}
		fmt.Fprintln(w)
	}

	if len(stats.RequestsByDevice) > 0 {
		fmt.Fprintln(w, "Requests by Device:")
		devices := make([]uint32, 0, len(stats.RequestsByDevice))
		for d := range stats.RequestsByDevice {
			devices = append(devices, d)
		}
		sort.Slice(devices, func(i, j int) bool { return devices[i] < devices[j] })
		for _, d := range devices {
			fmt.Fprintf(w, "  %-12d %d\n", d, stats.RequestsByDevice[d])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Connections: %d\n", len(stats.Connections))
	if len(stats.Connections) > 0 {
		type connInfo struct {
			id    string
			stats *ConnectionStats
		}
		conns := make([]connInfo, 0, len(stats.Connections))
		for id, cs := range stats.Connections {
			conns = append(conns, connInfo{id, cs})
		}
		sort.Slice(conns, func(i, j int) bool {
			return conns[i].stats.FirstSeen.Before(conns[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, c := range conns {
			duration := c.stats.LastSeen.Sub(c.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenConnID(c.id), c.stats.Events, duration)
			if c.stats.RemoteAddr != "" {
				fmt.Fprintf(w, "           Peer: %s\n", c.stats.RemoteAddr)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
