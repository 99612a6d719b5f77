package clusters

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// Binding errors.
var (
	ErrInvalidBinding   = errors.New("invalid binding target")
	ErrBindingNotFound  = errors.New("binding not found")
	ErrBindingTableFull = errors.New("binding table full")
)

// MaxBindings is the binding table capacity per endpoint.
const MaxBindings = 16

// BindingTarget is one entry of an endpoint's binding table. A target is
// either a unicast (Node, Endpoint) pair or a Group. A nil Cluster matches
// every cluster.
type BindingTarget struct {
	Node     uint64  `cbor:"1,keyasint,omitempty" json:"node,omitempty"`
	Group    uint16  `cbor:"2,keyasint,omitempty" json:"group,omitempty"`
	Endpoint uint16  `cbor:"3,keyasint,omitempty" json:"endpoint,omitempty"`
	Cluster  *uint32 `cbor:"4,keyasint,omitempty" json:"cluster,omitempty"`
}

// IsGroup reports whether the target addresses a group.
func (t BindingTarget) IsGroup() bool {
	return t.Group != 0
}

// Matches reports whether the target applies to clusterID.
func (t BindingTarget) Matches(clusterID uint32) bool {
	return t.Cluster == nil || *t.Cluster == clusterID
}

// Validate checks the target addressing.
func (t BindingTarget) Validate() error {
	if t.IsGroup() {
		if t.Node != 0 || t.Endpoint != 0 {
			return fmt.Errorf("%w: group target must not set node or endpoint", ErrInvalidBinding)
		}
		return nil
	}
	if t.Node == 0 {
		return fmt.Errorf("%w: node is required", ErrInvalidBinding)
	}
	return nil
}

func (t BindingTarget) equal(o BindingTarget) bool {
	if t.Node != o.Node || t.Group != o.Group || t.Endpoint != o.Endpoint {
		return false
	}
	if (t.Cluster == nil) != (o.Cluster == nil) {
		return false
	}
	return t.Cluster == nil || *t.Cluster == *o.Cluster
}

// String formats the target for logs and the console.
func (t BindingTarget) String() string {
	cluster := "*"
	if t.Cluster != nil {
		cluster = ClusterName(*t.Cluster)
	}
	if t.IsGroup() {
		return fmt.Sprintf("group %d [%s]", t.Group, cluster)
	}
	return fmt.Sprintf("node 0x%X ep %d [%s]", t.Node, t.Endpoint, cluster)
}

// Binding is the Binding cluster server. The Binding attribute holds the
// endpoint's binding table.
type Binding struct {
	cluster *model.Cluster
	mu      sync.Mutex
}

// NewBinding creates a Binding cluster with an empty table.
func NewBinding() *Binding {
	c := model.NewCluster(BindingID, "Binding", 1)
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:          BindingAttrBinding,
		Name:        "Binding",
		Type:        model.DataTypeArray,
		Access:      model.AccessReadOnly,
		NonVolatile: true,
		Default:     []BindingTarget{},
	}))
	return &Binding{cluster: c}
}

// Cluster returns the underlying cluster.
func (b *Binding) Cluster() *model.Cluster {
	return b.cluster
}

// Targets returns the binding table of the cluster.
func Targets(c *model.Cluster) []BindingTarget {
	v, err := c.ReadAttribute(BindingAttrBinding)
	if err != nil {
		return nil
	}
	list, _ := v.([]BindingTarget)
	out := make([]BindingTarget, len(list))
	copy(out, list)
	return out
}

// Targets returns a copy of the binding table.
func (b *Binding) Targets() []BindingTarget {
	return Targets(b.cluster)
}

// Add appends a target. Duplicates are ignored.
func (b *Binding) Add(t BindingTarget) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return AddTarget(b.cluster, t)
}

// Remove deletes a target.
func (b *Binding) Remove(t BindingTarget) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return RemoveTarget(b.cluster, t)
}

// AddTarget appends t to the binding table of c. Duplicates are ignored.
// Callers serialize access, normally through the stack lock.
func AddTarget(c *model.Cluster, t BindingTarget) error {
	if err := t.Validate(); err != nil {
		return err
	}
	list := Targets(c)
	for _, existing := range list {
		if existing.equal(t) {
			return nil
		}
	}
	if len(list) >= MaxBindings {
		return ErrBindingTableFull
	}
	return c.SetAttribute(BindingAttrBinding, append(list, t))
}

// RemoveTarget deletes t from the binding table of c.
func RemoveTarget(c *model.Cluster, t BindingTarget) error {
	list := Targets(c)
	for i, existing := range list {
		if existing.equal(t) {
			next := append(list[:i:i], list[i+1:]...)
			return c.SetAttribute(BindingAttrBinding, next)
		}
	}
	return ErrBindingNotFound
}

// Replace sets the whole table, as done when restoring persisted state.
func (b *Binding) Replace(targets []BindingTarget) error {
	for _, t := range targets {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	if len(targets) > MaxBindings {
		return ErrBindingTableFull
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	list := make([]BindingTarget, len(targets))
	copy(list, targets)
	return b.cluster.SetAttribute(BindingAttrBinding, list)
}
