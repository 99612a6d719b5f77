// Package conformance checks endpoints against the cluster requirements of
// their device types.
//
// Each supported device type has an embedded YAML manifest listing the
// clusters it must carry, the role and revision of each cluster and the
// attributes and commands the cluster has to expose. A mismatch in cluster
// revision is reported as a warning; everything else that is missing is an
// error.
package conformance

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

//go:embed devicetypes/*.yaml
var manifestFS embed.FS

// Manifest describes what a device type requires.
type Manifest struct {
	DeviceType string                 `yaml:"device_type"`
	ID         uint32                 `yaml:"id"`
	Revision   uint8                  `yaml:"revision"`
	Clusters   map[string]ClusterSpec `yaml:"clusters"`
}

// ClusterSpec describes a single cluster within a device type.
type ClusterSpec struct {
	ID         uint32        `yaml:"id"`
	Revision   uint16        `yaml:"revision"`
	Role       string        `yaml:"role"`
	Mandatory  bool          `yaml:"mandatory"`
	Attributes AttributeSpec `yaml:"attributes"`
	Commands   CommandSpec   `yaml:"commands"`
}

// AttributeSpec lists the mandatory and optional attributes of a cluster.
type AttributeSpec struct {
	Mandatory []AttrDef `yaml:"mandatory"`
	Optional  []AttrDef `yaml:"optional"`
}

// AttrDef is a named attribute with its ID.
type AttrDef struct {
	ID   uint32 `yaml:"id"`
	Name string `yaml:"name"`
}

// CommandSpec lists the mandatory and optional commands of a cluster.
type CommandSpec struct {
	Mandatory []CmdDef `yaml:"mandatory"`
	Optional  []CmdDef `yaml:"optional"`
}

// CmdDef is a named command with its ID.
type CmdDef struct {
	ID   uint32 `yaml:"id"`
	Name string `yaml:"name"`
}

var (
	cacheMu sync.RWMutex
	cache   = make(map[string]*Manifest)
)

// LoadManifest loads the manifest of a device type by name
// (e.g. "dimmable_light").
func LoadManifest(deviceType string) (*Manifest, error) {
	cacheMu.RLock()
	if m, ok := cache[deviceType]; ok {
		cacheMu.RUnlock()
		return m, nil
	}
	cacheMu.RUnlock()

	data, err := manifestFS.ReadFile("devicetypes/" + deviceType + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("device type %q not found: %w", deviceType, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing device type %q: %w", deviceType, err)
	}

	cacheMu.Lock()
	cache[deviceType] = &m
	cacheMu.Unlock()

	return &m, nil
}

// AvailableDeviceTypes returns the names of all embedded manifests, sorted.
func AvailableDeviceTypes() ([]string, error) {
	entries, err := manifestFS.ReadDir("devicetypes")
	if err != nil {
		return nil, fmt.Errorf("reading device types: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") {
			names = append(names, strings.TrimSuffix(name, ".yaml"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// MandatoryClusters returns the names of all mandatory clusters, sorted.
func (m *Manifest) MandatoryClusters() []string {
	var out []string
	for name, cs := range m.Clusters {
		if cs.Mandatory {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ClusterByID looks up a cluster by its numeric ID.
func (m *Manifest) ClusterByID(id uint32) (string, *ClusterSpec, bool) {
	for name, cs := range m.Clusters {
		if cs.ID == id {
			return name, &cs, true
		}
	}
	return "", nil, false
}

// Capabilities describes what an endpoint actually exposes.
type Capabilities struct {
	Clusters map[uint32]ClusterCapabilities
}

// ClusterCapabilities describes a single cluster as built on an endpoint.
type ClusterCapabilities struct {
	Role       model.ClusterRole
	Revision   uint16
	Attributes []uint32
	Commands   []uint32
}

// CapabilitiesOf collects the capabilities of an endpoint.
func CapabilitiesOf(ep *model.Endpoint) Capabilities {
	caps := Capabilities{Clusters: make(map[uint32]ClusterCapabilities)}
	for _, c := range ep.Clusters() {
		cc := ClusterCapabilities{
			Role:     c.Role(),
			Revision: c.Revision(),
			Commands: c.CommandList(),
		}
		for _, attr := range c.Attributes() {
			cc.Attributes = append(cc.Attributes, attr.Metadata().ID)
		}
		caps.Clusters[c.ID()] = cc
	}
	return caps
}

// ValidationResult holds the outcome of validating an endpoint.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Validate checks whether an endpoint's capabilities satisfy a manifest.
// Findings are reported in cluster name order.
func Validate(m *Manifest, caps Capabilities) ValidationResult {
	var result ValidationResult

	names := make([]string, 0, len(m.Clusters))
	for name := range m.Clusters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := m.Clusters[name]
		have, present := caps.Clusters[spec.ID]

		if !present {
			if spec.Mandatory {
				result.Errors = append(result.Errors,
					fmt.Sprintf("mandatory cluster %s missing", name))
			}
			continue
		}

		if role := parseRole(spec.Role); role != 0 && have.Role&role == 0 {
			result.Errors = append(result.Errors,
				fmt.Sprintf("cluster %s has role %s, want %s", name, have.Role, spec.Role))
		}

		// Revision check (warning only).
		if have.Revision != spec.Revision {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("cluster %s revision mismatch: endpoint has %d, device type expects %d",
					name, have.Revision, spec.Revision))
		}

		attrSet := makeSet(have.Attributes)
		for _, attr := range spec.Attributes.Mandatory {
			if !attrSet[attr.ID] {
				result.Errors = append(result.Errors,
					fmt.Sprintf("cluster %s missing mandatory attribute %s (0x%04X)",
						name, attr.Name, attr.ID))
			}
		}

		cmdSet := makeSet(have.Commands)
		for _, cmd := range spec.Commands.Mandatory {
			if !cmdSet[cmd.ID] {
				result.Errors = append(result.Errors,
					fmt.Sprintf("cluster %s missing mandatory command %s (0x%02X)",
						name, cmd.Name, cmd.ID))
			}
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidateEndpoint checks an endpoint against the manifests of all its
// device types. Device types without a manifest are skipped; ok reports
// whether any manifest applied.
func ValidateEndpoint(ep *model.Endpoint) (result ValidationResult, ok bool) {
	caps := CapabilitiesOf(ep)
	result.Valid = true
	for _, dt := range ep.DeviceTypes() {
		m, err := LoadManifest(dt.Name)
		if err != nil {
			continue
		}
		ok = true
		r := Validate(m, caps)
		if dt.Revision != m.Revision {
			r.Warnings = append(r.Warnings,
				fmt.Sprintf("device type %s revision mismatch: endpoint has %d, manifest has %d",
					dt.Name, dt.Revision, m.Revision))
		}
		result.Errors = append(result.Errors, r.Errors...)
		result.Warnings = append(result.Warnings, r.Warnings...)
	}
	result.Valid = len(result.Errors) == 0
	return result, ok
}

// ValidateNode validates every application endpoint of a node. Endpoints
// whose device types have no manifest are left out of the result.
func ValidateNode(node *model.Node) map[uint16]ValidationResult {
	results := make(map[uint16]ValidationResult)
	for _, ep := range node.Endpoints() {
		if ep.ID() == 0 {
			continue
		}
		if r, ok := ValidateEndpoint(ep); ok {
			results[ep.ID()] = r
		}
	}
	return results
}

func parseRole(s string) model.ClusterRole {
	switch s {
	case "server":
		return model.RoleServer
	case "client":
		return model.RoleClient
	default:
		return 0
	}
}

func makeSet(ids []uint32) map[uint32]bool {
	s := make(map[uint32]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}
