package clusters

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// Groups is the Groups cluster server with its group table.
type Groups struct {
	cluster *model.Cluster

	mu     sync.RWMutex
	groups map[uint16]string

	onChange func(groups []uint16)
}

// NewGroups creates a Groups cluster.
func NewGroups() *Groups {
	c := model.NewCluster(GroupsID, "Groups", 4)
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:      GroupsAttrNameSupport,
		Name:    "NameSupport",
		Type:    model.DataTypeBitmap8,
		Access:  model.AccessReadOnly,
		Default: uint8(0x80),
	}))

	g := &Groups{
		cluster: c,
		groups:  make(map[uint16]string),
	}

	c.AddCommand(model.NewCommand(&model.CommandMetadata{
		ID:   GroupsCmdAddGroup,
		Name: "AddGroup",
		Parameters: []model.ParameterMetadata{
			{Name: "groupID", Type: model.DataTypeUint16, Required: true},
			{Name: "groupName", Type: model.DataTypeString},
		},
	}, g.handleAdd))
	c.AddCommand(model.NewCommand(&model.CommandMetadata{
		ID:   GroupsCmdViewGroup,
		Name: "ViewGroup",
		Parameters: []model.ParameterMetadata{
			{Name: "groupID", Type: model.DataTypeUint16, Required: true},
		},
	}, g.handleView))
	c.AddCommand(model.NewCommand(&model.CommandMetadata{
		ID:   GroupsCmdGetGroupMembership,
		Name: "GetGroupMembership",
	}, g.handleMembership))
	c.AddCommand(model.NewCommand(&model.CommandMetadata{
		ID:   GroupsCmdRemoveGroup,
		Name: "RemoveGroup",
		Parameters: []model.ParameterMetadata{
			{Name: "groupID", Type: model.DataTypeUint16, Required: true},
		},
	}, g.handleRemove))
	c.AddCommand(model.NewCommand(&model.CommandMetadata{
		ID:   GroupsCmdRemoveAllGroups,
		Name: "RemoveAllGroups",
	}, g.handleRemoveAll))

	return g
}

// Cluster returns the underlying cluster.
func (g *Groups) Cluster() *model.Cluster {
	return g.cluster
}

// OnChange registers a callback run after every change to the group table.
func (g *Groups) OnChange(fn func(groups []uint16)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onChange = fn
}

// Add adds or renames a group. Group 0 is invalid.
func (g *Groups) Add(id uint16, name string) error {
	if id == 0 {
		return model.ErrInvalidParameters
	}
	g.mu.Lock()
	g.groups[id] = name
	g.mu.Unlock()
	g.changed()
	return nil
}

// Remove removes a group and reports whether it existed.
func (g *Groups) Remove(id uint16) bool {
	g.mu.Lock()
	_, ok := g.groups[id]
	delete(g.groups, id)
	g.mu.Unlock()
	if ok {
		g.changed()
	}
	return ok
}

// RemoveAll clears the group table.
func (g *Groups) RemoveAll() {
	g.mu.Lock()
	g.groups = make(map[uint16]string)
	g.mu.Unlock()
	g.changed()
}

// Has reports group membership.
func (g *Groups) Has(id uint16) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.groups[id]
	return ok
}

// Table returns a copy of the group table.
func (g *Groups) Table() map[uint16]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[uint16]string, len(g.groups))
	for id, name := range g.groups {
		out[id] = name
	}
	return out
}

// List returns the sorted group IDs.
func (g *Groups) List() []uint16 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.listUnlocked()
}

func (g *Groups) listUnlocked() []uint16 {
	ids := make([]uint16, 0, len(g.groups))
	for id := range g.groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (g *Groups) changed() {
	g.mu.RLock()
	fn := g.onChange
	ids := g.listUnlocked()
	g.mu.RUnlock()
	if fn != nil {
		fn(ids)
	}
}

func (g *Groups) handleAdd(ctx context.Context, params map[string]any) (map[string]any, error) {
	id, _ := model.ParamInt(params, "groupID")
	if id <= 0 || id > 0xFFFF {
		return nil, model.ErrInvalidParameters
	}
	name, _ := params["groupName"].(string)
	if err := g.Add(uint16(id), name); err != nil {
		return nil, err
	}
	return map[string]any{"status": uint8(0), "groupID": uint16(id)}, nil
}

func (g *Groups) handleView(ctx context.Context, params map[string]any) (map[string]any, error) {
	id, _ := model.ParamInt(params, "groupID")
	g.mu.RLock()
	name, ok := g.groups[uint16(id)]
	g.mu.RUnlock()
	if !ok {
		return map[string]any{"status": uint8(0x8B), "groupID": uint16(id)}, nil
	}
	return map[string]any{"status": uint8(0), "groupID": uint16(id), "groupName": name}, nil
}

func (g *Groups) handleMembership(ctx context.Context, params map[string]any) (map[string]any, error) {
	return map[string]any{"groupList": g.List()}, nil
}

func (g *Groups) handleRemove(ctx context.Context, params map[string]any) (map[string]any, error) {
	id, _ := model.ParamInt(params, "groupID")
	status := uint8(0)
	if !g.Remove(uint16(id)) {
		status = 0x8B
	}
	return map[string]any{"status": status, "groupID": uint16(id)}, nil
}

func (g *Groups) handleRemoveAll(ctx context.Context, params map[string]any) (map[string]any, error) {
	g.RemoveAll()
	return nil, nil
}

// NewScenesManagement creates a ScenesManagement cluster exposing the scene
// table size. Scene storage itself is not implemented.
func NewScenesManagement(sceneTableSize uint16) *model.Cluster {
	c := model.NewCluster(ScenesManagementID, "ScenesManagement", 1)
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:      ScenesAttrSceneTableSize,
		Name:    "SceneTableSize",
		Type:    model.DataTypeUint16,
		Access:  model.AccessReadOnly,
		Default: sceneTableSize,
	}))
	return c
}

// GroupList returns the group IDs of a Groups cluster through its
// GetGroupMembership command, so callers only need the cluster.
func GroupList(ctx context.Context, c *model.Cluster) []uint16 {
	if c == nil {
		return nil
	}
	res, err := c.InvokeCommand(ctx, GroupsCmdGetGroupMembership, nil)
	if err != nil {
		return nil
	}
	list, _ := res["groupList"].([]uint16)
	return list
}

// IsGroupMember reports whether the Groups cluster lists group.
func IsGroupMember(ctx context.Context, c *model.Cluster, group uint16) bool {
	for _, id := range GroupList(ctx, c) {
		if id == group {
			return true
		}
	}
	return false
}

// GroupTable returns the group table of a Groups cluster with names.
func GroupTable(ctx context.Context, c *model.Cluster) map[uint16]string {
	table := make(map[uint16]string)
	for _, id := range GroupList(ctx, c) {
		res, err := c.InvokeCommand(ctx, GroupsCmdViewGroup, map[string]any{"groupID": id})
		if err != nil {
			continue
		}
		name, _ := res["groupName"].(string)
		table[id] = name
	}
	return table
}

// RestoreGroups adds every group of table through AddGroup.
func RestoreGroups(ctx context.Context, c *model.Cluster, table map[uint16]string) error {
	for id, name := range table {
		if _, err := c.InvokeCommand(ctx, GroupsCmdAddGroup, map[string]any{"groupID": id, "groupName": name}); err != nil {
			return fmt.Errorf("restore group %d: %w", id, err)
		}
	}
	return nil
}
