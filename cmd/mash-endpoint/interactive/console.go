// Package interactive provides the interactive command-line interface
// for the MASH endpoint.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/mash-protocol/mash-endpoint/internal/app"
	"github.com/mash-protocol/mash-endpoint/pkg/binding"
	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
	"github.com/mash-protocol/mash-endpoint/pkg/conformance"
	"github.com/mash-protocol/mash-endpoint/pkg/inspect"
)

// errQuit ends the command loop.
var errQuit = errors.New("quit")

// Console handles interactive mode for mash-endpoint. The endpoint is
// rebooted after a restart or factory reset, so the console follows the
// current App through SetApp.
type Console struct {
	rl        *readline.Instance
	out       io.Writer
	formatter *inspect.Formatter

	mu  sync.RWMutex
	app *app.App
}

// New creates a new interactive console.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "endpoint> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	c := newConsole(rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(out io.Writer) *Console {
	return &Console{out: out, formatter: inspect.NewFormatter()}
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// SetApp points the console at the booted endpoint.
func (c *Console) SetApp(a *app.App) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.app = a
}

func (c *Console) current() (*app.App, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.app == nil {
		return nil, app.ErrNotStarted
	}
	return c.app, nil
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if err := c.Exec(ctx, line); errors.Is(err, errQuit) {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Exec runs one command line.
func (c *Console) Exec(ctx context.Context, line string) error {
	input := strings.TrimSpace(line)
	if input == "" {
		return nil
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	if cmd == "help" || cmd == "?" {
		c.printHelp()
		return nil
	}
	if cmd == "quit" || cmd == "exit" || cmd == "q" {
		return errQuit
	}

	a, err := c.current()
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return err
	}

	switch cmd {
	case "inspect", "i":
		err = c.cmdInspect(a, args)
	case "read", "r":
		err = c.cmdRead(ctx, a, args)
	case "write", "w":
		err = c.cmdWrite(ctx, a, args)
	case "invoke", "call":
		err = c.cmdInvoke(ctx, a, args)
	case "press", "p":
		err = c.cmdPress(a, args, false)
	case "long":
		err = c.cmdPress(a, args, true)
	case "buttons":
		c.cmdButtons(a)
	case "identify":
		err = c.cmdIdentify(ctx, a, args)
	case "bind":
		err = c.cmdBind(ctx, a, args, true)
	case "unbind":
		err = c.cmdBind(ctx, a, args, false)
	case "bindings", "b":
		err = c.cmdBindings(a, args)
	case "commission", "qr":
		c.cmdCommission(a)
	case "status":
		c.cmdStatus(a)
	case "conformance":
		c.cmdConformance(a)
	case "restart":
		fmt.Fprintln(c.out, "Restarting...")
		a.RequestRestart(app.ReasonRestart)
	case "reset":
		fmt.Fprintln(c.out, "Factory reset...")
		a.FactoryReset()
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
		return nil
	}

	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
	return err
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
MASH Endpoint Commands:
  Inspection:
    inspect [path]            - Inspect node structure (or endpoint/cluster)
    read <path>               - Read an attribute (or all attributes of a cluster)
    write <path> <val>        - Write an attribute value
    invoke <path> [k=v ...]   - Invoke a command, e.g. invoke 1/on_off/cmd/toggle

  Buttons:
    buttons                   - List buttons
    press <button>            - Short press a button
    long <button>             - Long press a button
    identify <ep> <seconds>   - Start identifying an endpoint

  Bindings:
    bindings [ep]             - Show binding tables
    bind <ep> <node> <ep> [cluster]  - Bind to a unicast target (node in hex)
    bind <ep> group <id>      - Bind to a group
    unbind ...                - Remove a binding (same arguments as bind)

  Lifecycle:
    status                    - Show endpoint status
    conformance               - Check endpoints against their device types
    commission                - Show commissioning codes
    restart                   - Restart the endpoint
    reset                     - Erase stored state and restart

  General:
    help                      - Show this help
    quit                      - Exit

  Path Format:
    [@node/]endpoint/cluster/attribute - e.g., 1/on_off/on_off or @a1/1/6/0
    endpoint/cluster/cmd/command       - e.g., 1/level_control/cmd/move_to_level`)
}

// cmdInspect handles the inspect command.
func (c *Console) cmdInspect(a *app.App, args []string) error {
	insp := inspect.NewInspector(a.Node())

	if len(args) == 0 {
		fmt.Fprint(c.out, insp.FormatNodeTree(insp.InspectNode(), c.formatter))
		return nil
	}

	path, err := inspect.ParsePath(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if path.Remote {
		return inspect.ErrRemotePath
	}

	if !strings.Contains(args[0], "/") {
		ep, err := insp.InspectEndpoint(path.EndpointID)
		if err != nil {
			return err
		}
		fmt.Fprint(c.out, insp.FormatEndpoint(ep, c.formatter))
		return nil
	}

	info, err := insp.InspectCluster(path.EndpointID, path.ClusterID)
	if err != nil {
		return err
	}
	fmt.Fprint(c.out, insp.FormatCluster(info, c.formatter))
	return nil
}

// cmdRead handles the read command.
func (c *Console) cmdRead(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: read <path>")
		fmt.Fprintln(c.out, "  Example: read 1/level_control/current_level")
		return nil
	}

	path, err := inspect.ParsePath(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	if path.Remote {
		client, err := a.Client()
		if err != nil {
			return err
		}
		value, err := inspect.NewRemoteInspector(client).ReadAttribute(ctx, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s = %s\n", attributeLabel(path), c.formatter.FormatValue(value))
		return nil
	}

	insp := inspect.NewInspector(a.Node())
	if path.IsPartial {
		attrs, err := insp.ReadAllAttributes(path.EndpointID, path.ClusterID)
		if err != nil {
			return err
		}
		fmt.Fprint(c.out, c.formatter.FormatAttributeTable(c.formatter.AttributeRows(path.ClusterID, attrs)))
		return nil
	}

	value, err := insp.ReadAttribute(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s = %s\n", attributeLabel(path), c.formatter.FormatValue(value))
	return nil
}

// cmdWrite handles the write command.
func (c *Console) cmdWrite(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: write <path> <value>")
		fmt.Fprintln(c.out, "  Example: write 1/level_control/on_level 128")
		return nil
	}

	path, err := inspect.ParsePath(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	value := parseValue(strings.Join(args[1:], " "))

	if path.Remote {
		client, err := a.Client()
		if err != nil {
			return err
		}
		err = inspect.NewRemoteInspector(client).WriteAttribute(ctx, path, value)
		if err != nil {
			return err
		}
	} else if err := inspect.NewInspector(a.Node()).WriteAttribute(ctx, path, value); err != nil {
		return err
	}

	fmt.Fprintln(c.out, "OK")
	return nil
}

// cmdInvoke handles the invoke command.
func (c *Console) cmdInvoke(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: invoke <path> [field=value ...]")
		fmt.Fprintln(c.out, "  Example: invoke 1/level_control/cmd/move_to_level level=128")
		return nil
	}

	path, err := inspect.ParsePath(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	params := make(map[string]any, len(args)-1)
	for _, kv := range args[1:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid field %q, want name=value", kv)
		}
		params[k] = parseValue(v)
	}

	var resp map[string]any
	if path.Remote {
		client, err := a.Client()
		if err != nil {
			return err
		}
		resp, err = inspect.NewRemoteInspector(client).InvokeCommand(ctx, path, params)
		if err != nil {
			return err
		}
	} else {
		resp, err = inspect.NewInspector(a.Node()).InvokeCommand(ctx, path, params)
		if err != nil {
			return err
		}
	}

	if len(resp) > 0 {
		fmt.Fprintln(c.out, c.formatter.FormatValue(resp))
		return nil
	}
	fmt.Fprintln(c.out, "OK")
	return nil
}

// cmdButtons lists the configured buttons.
func (c *Console) cmdButtons(a *app.App) {
	rts := a.Buttons().Runtimes()
	if len(rts) == 0 {
		fmt.Fprintln(c.out, "No buttons configured")
		return
	}
	for _, rt := range rts {
		fmt.Fprintf(c.out, "  %-10s mode=%s action=%s/%s binding_ep=%d presses=%d\n",
			rt.ID(), rt.Mode(), rt.Cluster(), rt.Command(), rt.BindingEndpoint(), rt.Count())
	}
}

// cmdPress simulates a button press.
func (c *Console) cmdPress(a *app.App, args []string, long bool) error {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: press|long <button>")
		return nil
	}
	rt, err := a.Buttons().Runtime(args[0])
	if err != nil {
		return err
	}
	if long {
		held := time.Duration(max(rt.Config().LongPressTimeMS, 0)) * time.Millisecond
		rt.Button().Hold(held)
		fmt.Fprintf(c.out, "Long press on %s\n", rt.ID())
		return nil
	}
	rt.Button().Click()
	fmt.Fprintf(c.out, "Press on %s (count %d)\n", rt.ID(), rt.Count())
	return nil
}

// cmdIdentify invokes Identify on a local endpoint.
func (c *Console) cmdIdentify(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: identify <endpoint> <seconds>")
		return nil
	}
	path, err := inspect.ParsePath(args[0] + "/identify/cmd/identify")
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	secs, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		return fmt.Errorf("invalid seconds: %w", err)
	}
	_, err = inspect.NewInspector(a.Node()).InvokeCommand(ctx, path, map[string]any{"identifyTime": secs})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, "OK")
	return nil
}

// cmdBind adds or removes a binding table entry.
func (c *Console) cmdBind(ctx context.Context, a *app.App, args []string, add bool) error {
	if len(args) < 3 {
		fmt.Fprintln(c.out, "Usage: bind|unbind <ep> <node> <ep> [cluster]")
		fmt.Fprintln(c.out, "       bind|unbind <ep> group <id>")
		return nil
	}
	localEP, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	target, err := parseTarget(args[1:])
	if err != nil {
		return err
	}

	if add {
		err = binding.Bind(ctx, a.Node(), uint16(localEP), target)
	} else {
		err = binding.Unbind(ctx, a.Node(), uint16(localEP), target)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, "OK")
	return nil
}

// cmdBindings prints binding tables.
func (c *Console) cmdBindings(a *app.App, args []string) error {
	var eps []uint16
	if len(args) > 0 {
		ep, err := strconv.ParseUint(args[0], 10, 16)
		if err != nil {
			return fmt.Errorf("invalid endpoint: %w", err)
		}
		eps = append(eps, uint16(ep))
	} else {
		for _, ep := range a.Node().FindEndpointsWithCluster(clusters.BindingID) {
			eps = append(eps, ep.ID())
		}
	}

	if len(eps) == 0 {
		fmt.Fprintln(c.out, "No binding tables")
		return nil
	}
	for _, ep := range eps {
		targets, err := binding.Targets(a.Node(), ep)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Endpoint %d (%d):\n", ep, len(targets))
		for _, t := range targets {
			fmt.Fprintf(c.out, "  %s\n", inspect.FormatBindingTarget(t))
		}
	}
	return nil
}

// cmdCommission prints the commissioning codes.
func (c *Console) cmdCommission(a *app.App) {
	creds := a.Credentials()
	fmt.Fprintln(c.out, "Commissioning")
	fmt.Fprintln(c.out, "-------------------------------------------")
	fmt.Fprintf(c.out, "  Discriminator:  %d\n", creds.Discriminator)
	fmt.Fprintf(c.out, "  Manual code:    %s\n", creds.ManualCode())
	fmt.Fprintf(c.out, "  QR payload:     %s\n", a.QRCode())
}

// cmdStatus shows the endpoint status.
func (c *Console) cmdStatus(a *app.App) {
	cfg := a.Config()
	node := a.Node()

	fmt.Fprintln(c.out, "\nEndpoint Status")
	fmt.Fprintln(c.out, "-------------------------------------------")
	fmt.Fprintf(c.out, "  Device:         %s (%s)\n", cfg.App.DeviceName, cfg.App.DeviceType)
	fmt.Fprintf(c.out, "  Node ID:        %016X\n", node.NodeID())
	fmt.Fprintf(c.out, "  State:          %s\n", a.State())
	fmt.Fprintf(c.out, "  Session:        %s\n", a.SessionID())
	fmt.Fprintf(c.out, "  Restored:       %t\n", a.Restored())

	built := make([]string, 0)
	for _, ep := range node.Endpoints() {
		if ep.ID() != 0 {
			built = append(built, strconv.Itoa(int(ep.ID())))
		}
	}
	fmt.Fprintf(c.out, "  Endpoints:      %s\n", strings.Join(built, ", "))
	if failed := a.Report().FailedEndpoints(); len(failed) > 0 {
		fmt.Fprintf(c.out, "  Failed:         %v\n", failed)
	}

	transport := "offline"
	if _, err := a.Client(); err == nil {
		transport = fmt.Sprintf("mqtt %s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port)
	}
	fmt.Fprintf(c.out, "  Transport:      %s\n", transport)

	discovery := "disabled"
	if d := a.Discovery(); d != nil {
		discovery = d.State().String()
	}
	fmt.Fprintf(c.out, "  Discovery:      %s\n", discovery)
	fmt.Fprintln(c.out)
}

// parseTarget parses "<node> <ep> [cluster]" or "group <id>".
func parseTarget(args []string) (clusters.BindingTarget, error) {
	if strings.EqualFold(args[0], "group") {
		id, err := strconv.ParseUint(args[1], 0, 16)
		if err != nil {
			return clusters.BindingTarget{}, fmt.Errorf("invalid group: %w", err)
		}
		return clusters.BindingTarget{Group: uint16(id)}, nil
	}

	node, err := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 64)
	if err != nil {
		return clusters.BindingTarget{}, fmt.Errorf("invalid node: %w", err)
	}
	ep, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		return clusters.BindingTarget{}, fmt.Errorf("invalid target endpoint: %w", err)
	}
	t := clusters.BindingTarget{Node: node, Endpoint: uint16(ep)}
	if len(args) > 2 {
		id, ok := inspect.ResolveClusterName(args[2])
		if !ok {
			return clusters.BindingTarget{}, fmt.Errorf("unknown cluster %q", args[2])
		}
		t.Cluster = &id
	}
	return t, nil
}

// parseValue tries int, float, then bool, and falls back to a string.
func parseValue(s string) any {
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}
	if s == "null" {
		return nil
	}
	return strings.Trim(s, "\"'")
}

func attributeLabel(p *inspect.Path) string {
	if name := inspect.GetAttributeName(p.ClusterID, p.AttributeID); name != "" {
		return name
	}
	return p.String()
}

// cmdConformance handles the conformance command.
func (c *Console) cmdConformance(a *app.App) {
	results := conformance.ValidateNode(a.Node())
	if len(results) == 0 {
		fmt.Fprintln(c.out, "No endpoints with a known device type")
		return
	}
	for _, ep := range a.Node().Endpoints() {
		r, ok := results[ep.ID()]
		if !ok {
			continue
		}
		status := "OK"
		if !r.Valid {
			status = "FAIL"
		}
		fmt.Fprintf(c.out, "Endpoint %d: %s\n", ep.ID(), status)
		for _, e := range r.Errors {
			fmt.Fprintf(c.out, "  error: %s\n", e)
		}
		for _, w := range r.Warnings {
			fmt.Fprintf(c.out, "  warning: %s\n", w)
		}
	}
}
