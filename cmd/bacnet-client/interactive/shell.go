// Package interactive provides the interactive command-line interface
// for the BACnet client.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/bacstack/bacnet-go/pkg/cache"
	"github.com/bacstack/bacnet-go/pkg/discovery"
	"github.com/bacstack/bacnet-go/pkg/model"
	"github.com/bacstack/bacnet-go/pkg/readprop"
)

// Shell handles interactive mode for bacnet-client.
type Shell struct {
	reader           *readprop.Reader
	finder           *discovery.Finder
	discoveryTimeout time.Duration
	rl               *readline.Instance
	out              io.Writer
}

// New creates a new interactive shell on top of reader.
func New(reader *readprop.Reader, discoveryTimeout time.Duration) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "bacnet> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Shell{
		reader:           reader,
		finder:           reader.Finder(),
		discoveryTimeout: discoveryTimeout,
		rl:               rl,
		out:              rl.Stdout(),
	}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		if s.Exec(ctx, strings.ToLower(parts[0]), parts[1:]) {
			cancel()
			return
		}
	}
}

// Exec runs one command and reports whether the shell should exit.
func (s *Shell) Exec(ctx context.Context, cmd string, args []string) bool {
	switch cmd {
	case "help", "?":
		s.printHelp()

	case "read", "r":
		s.cmdRead(ctx, args)

	case "devices", "ls":
		s.cmdDevices()

	case "whois":
		s.cmdWhoIs(args)

	case "cache":
		s.cmdCache()

	case "policy":
		s.cmdPolicy(args)

	case "evict":
		s.cmdEvict(args)

	case "reset":
		s.reader.Reset()
		fmt.Fprintln(s.out, "Caches cleared.")

	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return true

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
BACnet Client Commands:
  Reading:
    read <dev:type:inst:prop[idx]>... - Read properties (cache first)

  Devices:
    devices                           - List known device handles
    whois <device-id>                 - Locate a device
    evict <device-id>                 - Forget a device handle

  Cache:
    cache                             - Show cache statistics
    policy                            - List cache policies
    policy device <dev|*> <policy>
    policy object <dev|*> <obj|*> <policy>
    policy property <dev|*> <obj|*> <prop|*> <policy>
                                      - Set a policy (never-cache, never-expire, 30s)
    reset                             - Clear all caches

  General:
    help                              - Show this help
    quit                              - Exit`)
}

func (s *Shell) cmdRead(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "Usage: read <dev:type:inst:prop[idx]>...")
		return
	}

	refs := model.NewPropertyReferenceSet()
	for _, arg := range args {
		device, object, ref, err := model.ParseReference(arg)
		if err != nil {
			fmt.Fprintf(s.out, "Invalid reference %q: %v\n", arg, err)
			return
		}
		refs.Add(device, object, ref)
	}

	requested := refs.Clone()
	start := time.Now()
	results := s.reader.ReadProperties(ctx, refs, func(completed, total int) {
		fmt.Fprintf(s.out, "  progress: %d/%d\n", completed, total)
	}, s.discoveryTimeout)

	for _, device := range requested.Devices() {
		for _, r := range requested.References(device) {
			res, ok := results.Get(device, r.Object, r.Ref)
			if !ok {
				fmt.Fprintf(s.out, "  %d %s %s: <no result>\n", device, r.Object, r.Ref)
				continue
			}
			fmt.Fprintf(s.out, "  %d %s %s: %s\n", device, r.Object, r.Ref, res)
		}
	}
	fmt.Fprintf(s.out, "%d of %d references resolved in %s\n",
		results.Len(), requested.Len(), time.Since(start).Round(time.Millisecond))
}

func (s *Shell) cmdDevices() {
	devices := s.reader.Devices()
	if len(devices) == 0 {
		fmt.Fprintln(s.out, "No known devices.")
		return
	}
	fmt.Fprintf(s.out, "Known devices (%d):\n", len(devices))
	for _, dev := range devices {
		rpm := "no"
		if dev.ReadMultiple {
			rpm = "yes"
		}
		fmt.Fprintf(s.out, "  %-8d %-24s max-apdu=%-5d rpm=%s %s\n",
			dev.ID, dev.Address, dev.MaxAPDU, rpm, dev.Name)
	}
}

func (s *Shell) cmdWhoIs(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: whois <device-id>")
		return
	}
	id, err := parseDeviceID(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid device ID: %v\n", err)
		return
	}

	out := s.out
	_, err = s.finder.FindAsync(id, discovery.Callbacks{
		OnSuccess: func(dev *discovery.RemoteDevice) {
			s.reader.LearnDevice(dev)
			fmt.Fprintf(out, "Found %s\n", dev)
		},
		OnTimeout: func() {
			fmt.Fprintf(out, "Device %d did not answer within %s\n", id, s.discoveryTimeout)
		},
	}, s.discoveryTimeout)
	if err != nil {
		fmt.Fprintf(s.out, "Who-Is failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Who-Is sent for device %d\n", id)
}

func (s *Shell) cmdCache() {
	fmt.Fprintf(s.out, "Cached values:  %d\n", s.reader.CachedValueCount())
	fmt.Fprintf(s.out, "Known devices:  %d\n", len(s.reader.Devices()))
}

func (s *Shell) cmdPolicy(args []string) {
	if len(args) == 0 {
		rules := s.reader.Policies().Rules()
		fmt.Fprintf(s.out, "Cache policies (%d):\n", len(rules))
		for _, r := range rules {
			fmt.Fprintf(s.out, "  %-8s %-40s %s\n", r.Table, r.Key, r.Policy)
		}
		return
	}
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: policy [device|object|property] <scope>... <policy>")
		return
	}

	rule := cache.OverrideRule{Policy: args[len(args)-1]}
	axes := args[1 : len(args)-1]
	overrides := &cache.Overrides{}
	switch {
	case args[0] == "device" && len(axes) == 1:
		rule.Device = axes[0]
		overrides.Device = []cache.OverrideRule{rule}
	case args[0] == "object" && len(axes) == 2:
		rule.Device, rule.Object = axes[0], axes[1]
		overrides.Object = []cache.OverrideRule{rule}
	case args[0] == "property" && len(axes) == 3:
		rule.Device, rule.Object, rule.Property = axes[0], axes[1], axes[2]
		overrides.Property = []cache.OverrideRule{rule}
	default:
		fmt.Fprintln(s.out, "Usage: policy [device|object|property] <scope>... <policy>")
		return
	}

	if err := overrides.Apply(s.reader.Policies()); err != nil {
		fmt.Fprintf(s.out, "Invalid policy: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Policy set: %s\n", rule.Policy)
}

func (s *Shell) cmdEvict(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: evict <device-id>")
		return
	}
	id, err := parseDeviceID(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid device ID: %v\n", err)
		return
	}
	if s.reader.EvictDevice(id) {
		fmt.Fprintf(s.out, "Device %d evicted.\n", id)
	} else {
		fmt.Fprintf(s.out, "Device %d is not known.\n", id)
	}
}

func parseDeviceID(s string) (model.DeviceID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	if n > uint64(model.MaxInstance) {
		return 0, fmt.Errorf("instance %d out of range", n)
	}
	return model.DeviceID(n), nil
}
