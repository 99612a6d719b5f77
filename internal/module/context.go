package module

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/mash-protocol/mash-endpoint/pkg/duration"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// Binding records which module built an endpoint and the driver handle it
// was built with.
type Binding struct {
	Module Module
	Handle Handle
}

// BindingTable maps endpoint IDs to bindings. Entries are written once.
type BindingTable struct {
	mu      sync.RWMutex
	entries map[uint16]Binding
}

// NewBindingTable creates an empty table.
func NewBindingTable() *BindingTable {
	return &BindingTable{entries: make(map[uint16]Binding)}
}

// Record adds an entry. Recording an endpoint twice fails.
func (t *BindingTable) Record(endpoint uint16, b Binding) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[endpoint]; exists {
		return fmt.Errorf("endpoint %d: %w", endpoint, ErrAlreadyBound)
	}
	t.entries[endpoint] = b
	return nil
}

// Lookup returns the binding for endpoint.
func (t *BindingTable) Lookup(endpoint uint16) (Binding, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.entries[endpoint]
	return b, ok
}

// Endpoints returns the bound endpoint IDs in ascending order.
func (t *BindingTable) Endpoints() []uint16 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]uint16, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of entries.
func (t *BindingTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Context is the shared state of the module system: registry, binding
// table and driver handles. There is one per node.
type Context struct {
	Node     *model.Node
	Timers   *duration.Manager
	Registry *Registry
	Bindings *BindingTable
	Logger   *slog.Logger

	mu      sync.RWMutex
	handles map[string]Handle
}

// NewContext creates a context for node with the given modules.
func NewContext(node *model.Node, timers *duration.Manager, logger *slog.Logger, modules ...Module) *Context {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if timers == nil {
		timers = duration.NewManager()
	}
	return &Context{
		Node:     node,
		Timers:   timers,
		Registry: NewRegistry(modules...),
		Bindings: NewBindingTable(),
		Logger:   logger,
		handles:  make(map[string]Handle),
	}
}

// Handle returns the driver handle of m. ok is false when m has not been
// initialized.
func (c *Context) Handle(m Module) (h Handle, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok = c.handles[m.Name()]
	return h, ok
}

func (c *Context) initialized(m Module) bool {
	_, ok := c.Handle(m)
	return ok
}

func (c *Context) setHandle(m Module, h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handles[m.Name()] = h
}
