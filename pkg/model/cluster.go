package model

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Cluster errors.
var (
	ErrAttributeNotFound = errors.New("attribute not found")
	ErrClusterReadOnly   = errors.New("global attribute is read-only")
)

// ClusterRole distinguishes server clusters (state holders) from client
// clusters (command senders, e.g. the On/Off client on a switch).
type ClusterRole uint8

const (
	RoleServer ClusterRole = 1 << iota
	RoleClient
)

// String returns the role name.
func (r ClusterRole) String() string {
	switch r {
	case RoleServer:
		return "server"
	case RoleClient:
		return "client"
	case RoleServer | RoleClient:
		return "server+client"
	default:
		return "none"
	}
}

// ReadHook may override an attribute read. Returning ok=false falls through
// to the stored value.
type ReadHook func(ctx context.Context, attrID uint32) (value any, ok bool)

// ClusterSubscriber is notified after an attribute change is committed.
type ClusterSubscriber interface {
	OnAttributeChanged(clusterID uint32, attrID uint32, value any)
}

// Cluster represents a cluster instance containing attributes and commands.
type Cluster struct {
	mu sync.RWMutex

	id       uint32
	name     string
	revision uint16
	role     ClusterRole

	featureMap uint32

	attributes map[uint32]*Attribute
	commands   map[uint32]*Command

	subscribers []ClusterSubscriber
	readHook    ReadHook

	// endpoint is set when the cluster is added to an endpoint.
	endpoint *Endpoint
}

// NewCluster creates a server cluster with the global attributes.
func NewCluster(id uint32, name string, revision uint16) *Cluster {
	c := &Cluster{
		id:         id,
		name:       name,
		revision:   revision,
		role:       RoleServer,
		attributes: make(map[uint32]*Attribute),
		commands:   make(map[uint32]*Command),
	}
	c.addGlobalAttributes()
	return c
}

func (c *Cluster) addGlobalAttributes() {
	rev := NewAttribute(&AttributeMetadata{
		ID:      AttrIDClusterRevision,
		Name:    "ClusterRevision",
		Type:    DataTypeUint16,
		Access:  AccessReadOnly,
		Default: c.revision,
	})
	c.attributes[rev.ID()] = rev

	c.attributes[AttrIDFeatureMap] = NewAttribute(&AttributeMetadata{
		ID:      AttrIDFeatureMap,
		Name:    "FeatureMap",
		Type:    DataTypeBitmap32,
		Access:  AccessReadOnly,
		Default: uint32(0),
	})

	c.attributes[AttrIDAttributeList] = NewAttribute(&AttributeMetadata{
		ID:     AttrIDAttributeList,
		Name:   "AttributeList",
		Type:   DataTypeArray,
		Access: AccessRead,
	})

	c.attributes[AttrIDAcceptedCommandList] = NewAttribute(&AttributeMetadata{
		ID:     AttrIDAcceptedCommandList,
		Name:   "AcceptedCommandList",
		Type:   DataTypeArray,
		Access: AccessRead,
	})
}

// ID returns the cluster ID.
func (c *Cluster) ID() uint32 {
	return c.id
}

// Name returns the cluster name.
func (c *Cluster) Name() string {
	return c.name
}

// Revision returns the cluster revision.
func (c *Cluster) Revision() uint16 {
	return c.revision
}

// Role returns the cluster role.
func (c *Cluster) Role() ClusterRole {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

// SetRole sets the cluster role.
func (c *Cluster) SetRole(role ClusterRole) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.role = role
}

// FeatureMap returns the feature bitmap.
func (c *Cluster) FeatureMap() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.featureMap
}

// AddFeature sets feature bits in the feature map.
func (c *Cluster) AddFeature(bits uint32) {
	c.mu.Lock()
	c.featureMap |= bits
	fm := c.featureMap
	attr := c.attributes[AttrIDFeatureMap]
	c.mu.Unlock()

	_ = attr.SetValueInternal(fm)
}

// HasFeature reports whether all bits are set in the feature map.
func (c *Cluster) HasFeature(bits uint32) bool {
	return c.FeatureMap()&bits == bits
}

// Endpoint returns the endpoint the cluster belongs to, or nil.
func (c *Cluster) Endpoint() *Endpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoint
}

func (c *Cluster) attach(ep *Endpoint) {
	c.mu.Lock()
	c.endpoint = ep
	c.mu.Unlock()
}

// AddAttribute adds an attribute to the cluster, replacing any existing one
// with the same ID.
func (c *Cluster) AddAttribute(attr *Attribute) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attributes[attr.ID()] = attr
}

// HasAttribute reports whether the attribute exists.
func (c *Cluster) HasAttribute(id uint32) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.attributes[id]
	return ok
}

// GetAttribute returns an attribute by ID.
func (c *Cluster) GetAttribute(id uint32) (*Attribute, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	attr, exists := c.attributes[id]
	if !exists {
		return nil, ErrAttributeNotFound
	}
	return attr, nil
}

// SetReadHook installs a read hook.
func (c *Cluster) SetReadHook(hook ReadHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readHook = hook
}

// ReadAttribute reads an attribute value by ID.
func (c *Cluster) ReadAttribute(id uint32) (any, error) {
	return c.ReadAttributeWithContext(context.Background(), id)
}

// ReadAttributeWithContext reads an attribute value, consulting the read hook.
func (c *Cluster) ReadAttributeWithContext(ctx context.Context, id uint32) (any, error) {
	switch id {
	case AttrIDAttributeList:
		return c.AttributeList(), nil
	case AttrIDAcceptedCommandList:
		return c.CommandList(), nil
	}

	attr, err := c.GetAttribute(id)
	if err != nil {
		return nil, err
	}
	if !attr.Metadata().Access.CanRead() {
		return nil, ErrAttributeNotFound
	}

	c.mu.RLock()
	hook := c.readHook
	c.mu.RUnlock()
	if hook != nil {
		if v, ok := hook(ctx, id); ok {
			return v, nil
		}
	}

	return attr.Value(), nil
}

// WriteAttribute writes an attribute on behalf of a remote peer. Write
// access is enforced.
func (c *Cluster) WriteAttribute(id uint32, value any) error {
	return c.update(id, value, true)
}

// SetAttribute commits an attribute value without checking write access.
// The node's attribute callback and the cluster subscribers are run.
func (c *Cluster) SetAttribute(id uint32, value any) error {
	return c.update(id, value, false)
}

func (c *Cluster) update(id uint32, value any, checkAccess bool) error {
	if id >= AttrIDGlobalBase {
		return ErrClusterReadOnly
	}

	attr, err := c.GetAttribute(id)
	if err != nil {
		return err
	}
	if checkAccess && !attr.Metadata().Access.CanWrite() {
		return ErrAttributeNotWritable
	}

	// Pre-update callbacks only see values the attribute will accept.
	value, err = attr.validate(value)
	if err != nil {
		return err
	}

	ep := c.Endpoint()
	if ep != nil {
		ep.dispatchUpdate(PhasePreUpdate, c.id, id, value)
	}

	if err := attr.SetValueInternal(value); err != nil {
		return err
	}
	stored := attr.Value()

	if ep != nil {
		ep.dispatchUpdate(PhasePostUpdate, c.id, id, stored)
	}
	c.notifyAttributeChanged(id, stored)
	return nil
}

// ReadAllAttributes returns all readable attribute values.
func (c *Cluster) ReadAllAttributes() map[uint32]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[uint32]any)
	for id, attr := range c.attributes {
		if !attr.Metadata().Access.CanRead() {
			continue
		}
		switch id {
		case AttrIDAttributeList:
			result[id] = c.attributeListUnlocked()
		case AttrIDAcceptedCommandList:
			result[id] = c.commandListUnlocked()
		default:
			result[id] = attr.Value()
		}
	}
	return result
}

// Attributes returns every attribute instance, sorted by ID.
func (c *Cluster) Attributes() []*Attribute {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*Attribute, 0, len(c.attributes))
	for _, attr := range c.attributes {
		result = append(result, attr)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}

// AttributeList returns the sorted list of readable attribute IDs.
func (c *Cluster) AttributeList() []uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attributeListUnlocked()
}

func (c *Cluster) attributeListUnlocked() []uint32 {
	ids := make([]uint32, 0, len(c.attributes))
	for id, attr := range c.attributes {
		if attr.Metadata().Access.CanRead() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AddCommand adds a command to the cluster.
func (c *Cluster) AddCommand(cmd *Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands[cmd.ID()] = cmd
}

// GetCommand returns a command by ID.
func (c *Cluster) GetCommand(id uint32) (*Command, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cmd, exists := c.commands[id]
	if !exists {
		return nil, ErrCommandNotFound
	}
	return cmd, nil
}

// InvokeCommand invokes a command by ID.
func (c *Cluster) InvokeCommand(ctx context.Context, id uint32, params map[string]any) (map[string]any, error) {
	cmd, err := c.GetCommand(id)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]any{}
	}
	return cmd.Invoke(ctx, params)
}

// CommandList returns the sorted list of command IDs.
func (c *Cluster) CommandList() []uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.commandListUnlocked()
}

func (c *Cluster) commandListUnlocked() []uint32 {
	ids := make([]uint32, 0, len(c.commands))
	for id := range c.commands {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Subscribe adds a subscriber for change notifications.
func (c *Cluster) Subscribe(sub ClusterSubscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, sub)
}

// Unsubscribe removes a subscriber.
func (c *Cluster) Unsubscribe(sub ClusterSubscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, s := range c.subscribers {
		if s == sub {
			c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
			return
		}
	}
}

func (c *Cluster) notifyAttributeChanged(attrID uint32, value any) {
	c.mu.RLock()
	subs := make([]ClusterSubscriber, len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.RUnlock()

	for _, sub := range subs {
		sub.OnAttributeChanged(c.id, attrID, value)
	}
}

// DirtyAttributes returns attributes that changed since the last ClearDirty.
func (c *Cluster) DirtyAttributes() map[uint32]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[uint32]any)
	for id, attr := range c.attributes {
		if attr.IsDirty() {
			result[id] = attr.Value()
		}
	}
	return result
}

// ClearDirty clears the dirty flag on all attributes.
func (c *Cluster) ClearDirty() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, attr := range c.attributes {
		attr.ClearDirty()
	}
}
