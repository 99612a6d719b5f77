package model

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Endpoint errors.
var (
	ErrClusterNotFound  = errors.New("cluster not found")
	ErrEndpointNotFound = errors.New("endpoint not found")
	ErrDuplicateCluster = errors.New("duplicate cluster ID")
)

// DeviceType identifies a device type implemented by an endpoint.
type DeviceType struct {
	ID       uint32 `cbor:"1,keyasint" json:"id"`
	Revision uint8  `cbor:"2,keyasint" json:"revision"`
	Name     string `cbor:"3,keyasint,omitempty" json:"name,omitempty"`
}

// Endpoint represents an addressable unit within a node.
type Endpoint struct {
	mu sync.RWMutex

	// id is the endpoint identifier (0 is always the root endpoint).
	id uint16

	// deviceTypes lists the device types this endpoint implements.
	deviceTypes []DeviceType

	// clusters indexed by ID.
	clusters map[uint32]*Cluster

	// node is set when the endpoint is added to a node.
	node *Node
}

// NewEndpoint creates a new endpoint.
func NewEndpoint(id uint16) *Endpoint {
	return &Endpoint{
		id:       id,
		clusters: make(map[uint32]*Cluster),
	}
}

// ID returns the endpoint ID.
func (e *Endpoint) ID() uint16 {
	return e.id
}

// AddDeviceType records a device type on the endpoint.
func (e *Endpoint) AddDeviceType(dt DeviceType) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deviceTypes = append(e.deviceTypes, dt)
}

// DeviceTypes returns the device types of the endpoint.
func (e *Endpoint) DeviceTypes() []DeviceType {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]DeviceType, len(e.deviceTypes))
	copy(out, e.deviceTypes)
	return out
}

// HasDeviceType reports whether the endpoint implements the device type ID.
func (e *Endpoint) HasDeviceType(id uint32) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, dt := range e.deviceTypes {
		if dt.ID == id {
			return true
		}
	}
	return false
}

// AddCluster adds a cluster to the endpoint.
func (e *Endpoint) AddCluster(cluster *Cluster) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.clusters[cluster.ID()]; exists {
		return ErrDuplicateCluster
	}
	e.clusters[cluster.ID()] = cluster
	cluster.attach(e)
	return nil
}

// GetCluster returns a cluster by ID.
func (e *Endpoint) GetCluster(id uint32) (*Cluster, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cluster, exists := e.clusters[id]
	if !exists {
		return nil, ErrClusterNotFound
	}
	return cluster, nil
}

// HasCluster returns true if the endpoint has the given cluster.
func (e *Endpoint) HasCluster(id uint32) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, exists := e.clusters[id]
	return exists
}

// HasServerCluster returns true if the endpoint has the cluster in the
// server role.
func (e *Endpoint) HasServerCluster(id uint32) bool {
	c, err := e.GetCluster(id)
	if err != nil {
		return false
	}
	return c.Role()&RoleServer != 0
}

// Clusters returns all clusters on this endpoint, sorted by ID.
func (e *Endpoint) Clusters() []*Cluster {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]*Cluster, 0, len(e.clusters))
	for _, c := range e.clusters {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}

// ClusterIDs returns the sorted IDs of all clusters on this endpoint.
func (e *Endpoint) ClusterIDs() []uint32 {
	clusters := e.Clusters()
	ids := make([]uint32, len(clusters))
	for i, c := range clusters {
		ids[i] = c.ID()
	}
	return ids
}

// Node returns the node the endpoint belongs to, or nil.
func (e *Endpoint) Node() *Node {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.node
}

func (e *Endpoint) attach(n *Node) {
	e.mu.Lock()
	e.node = n
	e.mu.Unlock()
}

func (e *Endpoint) dispatchUpdate(phase UpdatePhase, clusterID, attrID uint32, value any) {
	n := e.Node()
	if n == nil {
		return
	}
	n.dispatchUpdate(phase, AttributePath{Endpoint: e.id, Cluster: clusterID, Attribute: attrID}, value)
}

// ReadAttribute reads an attribute from a cluster.
func (e *Endpoint) ReadAttribute(clusterID, attrID uint32) (any, error) {
	cluster, err := e.GetCluster(clusterID)
	if err != nil {
		return nil, err
	}
	return cluster.ReadAttribute(attrID)
}

// InvokeCommand invokes a command on a cluster.
func (e *Endpoint) InvokeCommand(ctx context.Context, clusterID, cmdID uint32, params map[string]any) (map[string]any, error) {
	cluster, err := e.GetCluster(clusterID)
	if err != nil {
		return nil, err
	}
	return cluster.InvokeCommand(ctx, cmdID, params)
}

// EndpointInfo describes an endpoint for discovery and the console.
type EndpointInfo struct {
	ID          uint16       `cbor:"1,keyasint" json:"id"`
	DeviceTypes []DeviceType `cbor:"2,keyasint" json:"device_types"`
	Clusters    []uint32     `cbor:"3,keyasint" json:"clusters"`
}

// Info returns endpoint information.
func (e *Endpoint) Info() *EndpointInfo {
	return &EndpointInfo{
		ID:          e.id,
		DeviceTypes: e.DeviceTypes(),
		Clusters:    e.ClusterIDs(),
	}
}
