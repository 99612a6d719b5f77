// Command mash-log reads the protocol log files written by mash-endpoint.
//
// The endpoint writes its protocol log when protocol_log.path is set in its
// configuration. Each run of the endpoint is a session; sessions append to
// the same file.
//
// Usage:
//
//	mash-log <command> [flags] <file.cbor>
//
// Examples:
//
//	# Last 20 button presses
//	mash-log view -category button -tail 20 protocol.cbor
//
//	# Everything endpoint 2 sent or committed
//	mash-log view -endpoint 2 protocol.cbor
//
//	# Keep one session in a new file
//	mash-log filter -session 6f1c2a9e-... -o session.cbor protocol.cbor
//
//	# CSV for a spreadsheet
//	mash-log export -format csv -o events.csv protocol.cbor
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mash-protocol/mash-endpoint/cmd/mash-log/commands"
)

type command struct {
	name    string
	summary string
	run     func(args []string, stdout io.Writer) error
}

var commandList = []command{
	{"view", "Print events in human-readable form", runView},
	{"filter", "Copy matching events to a new log file", runFilter},
	{"export", "Convert the log to JSON lines or CSV", runExport},
	{"stats", "Summarize sessions, buttons and failures", runStats},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "mash-log - MASH Endpoint Protocol Log Reader")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  mash-log <command> [flags] <file.cbor>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commandList {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, `Run "mash-log <command> -h" for the flags of a command.`)
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	name := os.Args[1]
	if name == "help" || name == "-h" || name == "-help" || name == "--help" {
		usage(os.Stdout)
		return
	}

	for _, c := range commandList {
		if c.name != name {
			continue
		}
		err := c.run(os.Args[2:], os.Stdout)
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "mash-log %s: %v\n", name, err)
			os.Exit(1)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
	usage(os.Stderr)
	os.Exit(2)
}

// filterFlags registers the event selection flags shared by view and filter.
func filterFlags(fs *flag.FlagSet) *commands.FilterOptions {
	opts := &commands.FilterOptions{}
	fs.StringVar(&opts.SessionID, "session", "", "only events of this session ID")
	fs.StringVar(&opts.Endpoint, "endpoint", "", "only events of this endpoint")
	fs.StringVar(&opts.Layer, "layer", "", "only this layer: wire, model or input")
	fs.StringVar(&opts.Direction, "direction", "", "only this direction: in or out")
	fs.StringVar(&opts.Category, "category", "", "only this category: message, attribute, identify, button or error")
	fs.StringVar(&opts.TimeStart, "time-start", "", "only events at or after this RFC3339 time")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "only events at or before this RFC3339 time")
	return opts
}

// parseArgs parses args into fs and returns the single log file operand.
func parseArgs(fs *flag.FlagSet, args []string) (string, error) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: mash-log %s [flags] <file.cbor>\n\nFlags:\n", fs.Name())
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return "", fmt.Errorf("expected one log file, got %d arguments", fs.NArg())
	}
	return fs.Arg(0), nil
}

func runView(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	opts := filterFlags(fs)
	tail := fs.Int("tail", 0, "show only the last N matching events")
	path, err := parseArgs(fs, args)
	if err != nil {
		return err
	}

	filter, err := commands.BuildFilter(*opts)
	if err != nil {
		return err
	}
	return commands.RunView(path, filter, *tail, stdout)
}

func runFilter(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("filter", flag.ContinueOnError)
	opts := filterFlags(fs)
	fs.StringVar(&opts.Output, "o", "", "output log file (required)")
	path, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if opts.Output == "" {
		return fmt.Errorf("output file (-o) required")
	}

	count, err := commands.RunFilter(path, *opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Filtered %d events to %s\n", count, opts.Output)
	return nil
}

func runExport(args []string, _ io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	format := fs.String("format", "jsonl", "output format: jsonl or csv")
	output := fs.String("o", "", "output file (default stdout)")
	path, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	return commands.RunExport(path, *format, *output)
}

func runStats(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	path, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	return commands.RunStats(path, stdout)
}
