package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// ErrUnsupportedVersion is returned when a state file was written by a newer format.
var ErrUnsupportedVersion = errors.New("unsupported state version")

// NodeState contains the persisted state of a node.
type NodeState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Attributes holds the non-volatile attribute values.
	Attributes []AttributeRecord `json:"attributes,omitempty"`

	// Bindings holds the binding table of each endpoint with a Binding cluster.
	Bindings map[uint16][]clusters.BindingTarget `json:"bindings,omitempty"`

	// Groups holds the group table (ID to name) of each endpoint.
	Groups map[uint16]map[uint16]string `json:"groups,omitempty"`
}

// AttributeRecord is one persisted attribute value.
type AttributeRecord struct {
	Endpoint  uint16 `json:"endpoint"`
	Cluster   uint32 `json:"cluster"`
	Attribute uint32 `json:"attribute"`
	Value     any    `json:"value"`
}

// Path returns the attribute path of the record.
func (r AttributeRecord) Path() model.AttributePath {
	return model.AttributePath{Endpoint: r.Endpoint, Cluster: r.Cluster, Attribute: r.Attribute}
}

// IsEmpty reports whether the state holds nothing to restore.
func (s *NodeState) IsEmpty() bool {
	return s == nil || (len(s.Attributes) == 0 && len(s.Bindings) == 0 && len(s.Groups) == 0)
}

// NodeStateStore manages persistence of node state to a JSON file.
type NodeStateStore struct {
	mu   sync.Mutex
	path string
}

// NewNodeStateStore creates a new node state store.
func NewNodeStateStore(path string) *NodeStateStore {
	return &NodeStateStore{path: path}
}

// Path returns the state file path.
func (s *NodeStateStore) Path() string {
	return s.path
}

// Save persists the node state to disk.
func (s *NodeStateStore) Save(state *NodeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Write to a temporary file first so a crash never leaves a torn state file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads the node state from disk.
// Returns nil, nil if the file doesn't exist (empty state).
func (s *NodeStateStore) Load() (*NodeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &NodeState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if state.Version > StateVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, state.Version)
	}

	return state, nil
}

// Clear removes the state file.
func (s *NodeStateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Capture builds the persistable state of node. Binding tables and group
// tables are captured from their clusters; every other non-volatile scalar
// attribute is recorded by value.
func Capture(ctx context.Context, node *model.Node) *NodeState {
	state := &NodeState{
		Bindings: make(map[uint16][]clusters.BindingTarget),
		Groups:   make(map[uint16]map[uint16]string),
	}

	for _, ep := range node.Endpoints() {
		for _, c := range ep.Clusters() {
			switch c.ID() {
			case clusters.BindingID:
				if targets := clusters.Targets(c); len(targets) > 0 {
					state.Bindings[ep.ID()] = targets
				}
				continue
			case clusters.GroupsID:
				if table := clusters.GroupTable(ctx, c); len(table) > 0 {
					state.Groups[ep.ID()] = table
				}
				continue
			}

			for _, attr := range c.Attributes() {
				meta := attr.Metadata()
				if !meta.NonVolatile {
					continue
				}
				switch meta.Type {
				case model.DataTypeArray, model.DataTypeStruct, model.DataTypeUnknown:
					continue
				}
				state.Attributes = append(state.Attributes, AttributeRecord{
					Endpoint:  ep.ID(),
					Cluster:   c.ID(),
					Attribute: attr.ID(),
					Value:     attr.Value(),
				})
			}
		}
	}

	sort.Slice(state.Attributes, func(i, j int) bool {
		a, b := state.Attributes[i], state.Attributes[j]
		if a.Endpoint != b.Endpoint {
			return a.Endpoint < b.Endpoint
		}
		if a.Cluster != b.Cluster {
			return a.Cluster < b.Cluster
		}
		return a.Attribute < b.Attribute
	})
	return state
}

// Apply restores state into node under the stack lock. Entries for
// endpoints or clusters that no longer exist are skipped. Value errors are
// collected and returned together after every entry was tried.
func Apply(ctx context.Context, node *model.Node, state *NodeState) error {
	if state.IsEmpty() {
		return nil
	}

	if err := node.Lock().Lock(ctx); err != nil {
		return err
	}
	defer node.Lock().Unlock()

	var errs []error
	for _, rec := range state.Attributes {
		err := node.UpdateAttributeLocked(rec.Path(), rec.Value)
		if err == nil || isMissing(err) {
			continue
		}
		errs = append(errs, fmt.Errorf("restore %s: %w", rec.Path(), err))
	}

	for epID, targets := range state.Bindings {
		c, err := node.GetCluster(epID, clusters.BindingID)
		if err != nil {
			continue
		}
		if err := c.SetAttribute(clusters.BindingAttrBinding, targets); err != nil {
			errs = append(errs, fmt.Errorf("restore bindings of endpoint %d: %w", epID, err))
		}
	}

	for epID, table := range state.Groups {
		c, err := node.GetCluster(epID, clusters.GroupsID)
		if err != nil {
			continue
		}
		if err := clusters.RestoreGroups(ctx, c, table); err != nil {
			errs = append(errs, fmt.Errorf("endpoint %d: %w", epID, err))
		}
	}

	return errors.Join(errs...)
}

func isMissing(err error) bool {
	return errors.Is(err, model.ErrEndpointNotFound) ||
		errors.Is(err, model.ErrClusterNotFound) ||
		errors.Is(err, model.ErrAttributeNotFound)
}

// Equal reports whether two states hold the same content, ignoring the
// version and save time.
func Equal(a, b *NodeState) bool {
	return bytes.Equal(contentOf(a), contentOf(b))
}

func contentOf(s *NodeState) []byte {
	if s.IsEmpty() {
		return nil
	}
	data, err := json.Marshal(struct {
		Attributes []AttributeRecord                   `json:"a"`
		Bindings   map[uint16][]clusters.BindingTarget `json:"b"`
		Groups     map[uint16]map[uint16]string        `json:"g"`
	}{s.Attributes, s.Bindings, s.Groups})
	if err != nil {
		return nil
	}
	return data
}
