// Command bacnet-capture views and summarizes protocol capture files.
//
// Capture files are written by bacnet-client and bacnet-sim with the
// -capture flag.
//
// Usage:
//
//	bacnet-capture <command> [flags] <file.bcap>
//
// Commands:
//
//	view     View the capture in human-readable format
//	stats    Show statistics about the capture
//
// Examples:
//
//	# View all events
//	bacnet-capture view client.bcap
//
//	# View only decoded messages for device 1200
//	bacnet-capture view -layer wire -device 1200 client.bcap
//
//	# Show statistics
//	bacnet-capture stats sim.bcap
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/bacstack/bacnet-go/cmd/bacnet-capture/commands"
	"github.com/bacstack/bacnet-go/pkg/capture"
)

const usage = `bacnet-capture - BACnet Protocol Capture Analyzer

Usage:
  bacnet-capture <command> [flags] <file.bcap>

Commands:
  view     View the capture in human-readable format
  stats    Show statistics about the capture

Use "bacnet-capture <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `bacnet-capture view - View the capture in human-readable format

Usage:
  bacnet-capture view [flags] <file.bcap>

Flags:
`)
		fs.PrintDefaults()
	}

	layer := fs.String("layer", "", "Filter by layer (transport, wire)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (message, state, error)")
	device := fs.String("device", "", "Filter by addressed device instance")
	connID := fs.String("conn-id", "", "Filter by connection ID")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}

	filter := capture.Filter{ConnectionID: *connID}
	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		exitOnError(err)
		filter.Layer = &l
	}
	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		exitOnError(err)
		filter.Direction = &d
	}
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		exitOnError(err)
		filter.Category = &c
	}
	if *device != "" {
		n, err := strconv.ParseUint(*device, 10, 32)
		exitOnError(err)
		id := uint32(n)
		filter.Device = &id
	}

	exitOnError(commands.RunView(fs.Arg(0), filter, os.Stdout))
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `bacnet-capture stats - Show statistics about the capture

Usage:
  bacnet-capture stats <file.bcap>
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}

	exitOnError(commands.RunStats(fs.Arg(0), os.Stdout))
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
