package model

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
)

// Node errors.
var (
	ErrDuplicateEndpoint = errors.New("duplicate endpoint ID")
)

// Node represents a device with its endpoint hierarchy.
// It is the top-level container in the Node > Endpoint > Cluster model.
type Node struct {
	mu sync.RWMutex

	// nodeID is the operational node identifier.
	nodeID uint64

	// vendorID identifies the manufacturer.
	vendorID uint16

	// productID identifies the product within the vendor.
	productID uint16

	// endpoints indexed by ID.
	endpoints map[uint16]*Endpoint

	lock *StackLock

	attrCallback     AttributeCallback
	identifyCallback IdentifyCallback

	logger *slog.Logger
}

// NewNode creates a node with the root endpoint.
func NewNode(nodeID uint64, vendorID, productID uint16) *Node {
	n := &Node{
		nodeID:    nodeID,
		vendorID:  vendorID,
		productID: productID,
		endpoints: make(map[uint16]*Endpoint),
		lock:      NewStackLock(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	root := NewEndpoint(EndpointRoot)
	root.attach(n)
	n.endpoints[EndpointRoot] = root
	return n
}

// NodeID returns the node identifier.
func (n *Node) NodeID() uint64 {
	return n.nodeID
}

// VendorID returns the vendor identifier.
func (n *Node) VendorID() uint16 {
	return n.vendorID
}

// ProductID returns the product identifier.
func (n *Node) ProductID() uint16 {
	return n.productID
}

// Lock returns the node's stack lock.
func (n *Node) Lock() *StackLock {
	return n.lock
}

// SetLogger sets the logger used for callback failures.
func (n *Node) SetLogger(logger *slog.Logger) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if logger != nil {
		n.logger = logger
	}
}

// SetAttributeCallback installs the attribute update callback.
func (n *Node) SetAttributeCallback(cb AttributeCallback) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attrCallback = cb
}

// SetIdentifyCallback installs the identify callback.
func (n *Node) SetIdentifyCallback(cb IdentifyCallback) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.identifyCallback = cb
}

// RootEndpoint returns endpoint 0.
func (n *Node) RootEndpoint() *Endpoint {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.endpoints[EndpointRoot]
}

// AddEndpoint adds an endpoint to the node.
// Returns an error if an endpoint with the same ID already exists.
func (n *Node) AddEndpoint(endpoint *Endpoint) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.endpoints[endpoint.ID()]; exists {
		return ErrDuplicateEndpoint
	}
	n.endpoints[endpoint.ID()] = endpoint
	endpoint.attach(n)
	return nil
}

// GetEndpoint returns an endpoint by ID.
func (n *Node) GetEndpoint(id uint16) (*Endpoint, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	endpoint, exists := n.endpoints[id]
	if !exists {
		return nil, ErrEndpointNotFound
	}
	return endpoint, nil
}

// Endpoints returns all endpoints sorted by ID.
func (n *Node) Endpoints() []*Endpoint {
	n.mu.RLock()
	defer n.mu.RUnlock()

	result := make([]*Endpoint, 0, len(n.endpoints))
	for _, ep := range n.endpoints {
		result = append(result, ep)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}

// FindEndpointsWithCluster returns all endpoints that have a given cluster,
// sorted by ID.
func (n *Node) FindEndpointsWithCluster(clusterID uint32) []*Endpoint {
	var result []*Endpoint
	for _, ep := range n.Endpoints() {
		if ep.HasCluster(clusterID) {
			result = append(result, ep)
		}
	}
	return result
}

// GetCluster returns a cluster from a specific endpoint.
func (n *Node) GetCluster(endpointID uint16, clusterID uint32) (*Cluster, error) {
	ep, err := n.GetEndpoint(endpointID)
	if err != nil {
		return nil, err
	}
	return ep.GetCluster(clusterID)
}

// ReadAttribute reads an attribute. Reads do not take the stack lock.
func (n *Node) ReadAttribute(path AttributePath) (any, error) {
	c, err := n.GetCluster(path.Endpoint, path.Cluster)
	if err != nil {
		return nil, err
	}
	return c.ReadAttribute(path.Attribute)
}

// UpdateAttribute takes the stack lock and commits an attribute value.
func (n *Node) UpdateAttribute(ctx context.Context, path AttributePath, value any) error {
	if err := n.lock.Lock(ctx); err != nil {
		return err
	}
	defer n.lock.Unlock()
	return n.UpdateAttributeLocked(path, value)
}

// UpdateAttributeLocked commits an attribute value. The caller holds the
// stack lock.
func (n *Node) UpdateAttributeLocked(path AttributePath, value any) error {
	c, err := n.GetCluster(path.Endpoint, path.Cluster)
	if err != nil {
		return err
	}
	return c.SetAttribute(path.Attribute, value)
}

// WriteAttributeLocked performs a remote write with access checks. The
// caller holds the stack lock.
func (n *Node) WriteAttributeLocked(path AttributePath, value any) error {
	c, err := n.GetCluster(path.Endpoint, path.Cluster)
	if err != nil {
		return err
	}
	return c.WriteAttribute(path.Attribute, value)
}

// Invoke takes the stack lock and invokes a command.
func (n *Node) Invoke(ctx context.Context, path CommandPath, params map[string]any) (map[string]any, error) {
	if err := n.lock.Lock(ctx); err != nil {
		return nil, err
	}
	defer n.lock.Unlock()
	return n.InvokeLocked(ctx, path, params)
}

// InvokeLocked invokes a command. The caller holds the stack lock.
func (n *Node) InvokeLocked(ctx context.Context, path CommandPath, params map[string]any) (map[string]any, error) {
	c, err := n.GetCluster(path.Endpoint, path.Cluster)
	if err != nil {
		return nil, err
	}
	return c.InvokeCommand(ctx, path.Command, params)
}

// Identify raises an identify event on the node's identify callback.
func (n *Node) Identify(kind IdentifyKind, endpoint uint16, effect, variant uint8) error {
	n.mu.RLock()
	cb := n.identifyCallback
	logger := n.logger
	n.mu.RUnlock()

	if cb == nil {
		return nil
	}
	err := cb.OnIdentify(kind, endpoint, effect, variant)
	if err != nil {
		logger.Warn("identify callback failed",
			"kind", kind.String(), "endpoint", endpoint, "effect", effect, "error", err)
	}
	return err
}

func (n *Node) dispatchUpdate(phase UpdatePhase, path AttributePath, value any) {
	n.mu.RLock()
	cb := n.attrCallback
	logger := n.logger
	n.mu.RUnlock()

	if cb == nil {
		return
	}
	if err := cb.OnAttributeUpdate(phase, path, value); err != nil {
		logger.Warn("attribute callback failed",
			"phase", phase.String(), "path", path.String(), "error", err)
	}
}

// NodeInfo summarizes the node.
type NodeInfo struct {
	NodeID    uint64          `cbor:"1,keyasint" json:"node_id"`
	VendorID  uint16          `cbor:"2,keyasint" json:"vendor_id"`
	ProductID uint16          `cbor:"3,keyasint" json:"product_id"`
	Endpoints []*EndpointInfo `cbor:"4,keyasint" json:"endpoints"`
}

// Info returns node information.
func (n *Node) Info() *NodeInfo {
	eps := n.Endpoints()
	infos := make([]*EndpointInfo, 0, len(eps))
	for _, ep := range eps {
		infos = append(infos, ep.Info())
	}
	return &NodeInfo{
		NodeID:    n.nodeID,
		VendorID:  n.vendorID,
		ProductID: n.productID,
		Endpoints: infos,
	}
}
