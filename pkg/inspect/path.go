// Package inspect provides node inspection and attribute manipulation utilities.
//
// The inspect package offers a unified interface for:
//   - Parsing path expressions (e.g., "1/on_off/on_off" or "@a1/1/6/0")
//   - Resolving cluster, attribute and command names to numeric IDs
//   - Reading and writing attributes and invoking commands
//   - Formatting output for display
package inspect

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Path errors.
var (
	ErrEmptyPath     = errors.New("empty path")
	ErrInvalidPath   = errors.New("invalid path format")
	ErrInvalidNumber = errors.New("invalid numeric value in path")
)

// Path represents a parsed inspection path.
// Format: [@node/]endpoint/cluster/attribute or [@node/]endpoint/cluster/cmd/command
type Path struct {
	// NodeID is the remote node (only meaningful when Remote is set).
	NodeID uint64

	// Remote indicates the path addresses another node.
	Remote bool

	// EndpointID is the endpoint number.
	EndpointID uint16

	// ClusterID is the cluster ID.
	ClusterID uint32

	// AttributeID is the attribute ID within the cluster.
	AttributeID uint32

	// CommandID is the command ID (when IsCommand is true).
	CommandID uint32

	// IsCommand indicates this path refers to a command, not an attribute.
	IsCommand bool

	// IsPartial indicates the path doesn't include an attribute/command
	// (used for inspect operations that show all attributes).
	IsPartial bool

	// Raw stores the original input string.
	Raw string
}

// ParsePath parses a path string into a Path struct.
//
// Supported formats:
//   - "endpoint/cluster/attribute" - local path
//   - "@node/endpoint/cluster/attribute" - remote path, node ID in hex
//   - "endpoint/cluster/cmd/command" - command path
//   - "endpoint/cluster" - partial (for listing attributes)
//   - "endpoint" - partial (for listing clusters)
//
// Numeric values can be decimal or hex (0x prefix).
// Names are resolved via the name tables.
func ParsePath(input string) (*Path, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyPath
	}

	if strings.HasPrefix(input, "/") || strings.HasSuffix(input, "/") || strings.Contains(input, "//") {
		return nil, ErrInvalidPath
	}

	parts := strings.Split(input, "/")
	p := &Path{Raw: input}

	if strings.HasPrefix(parts[0], "@") {
		id, err := strconv.ParseUint(strings.TrimPrefix(parts[0][1:], "0x"), 16, 64)
		if err != nil {
			return nil, fmt.Errorf("node: %w: %s", ErrInvalidNumber, parts[0])
		}
		p.NodeID = id
		p.Remote = true
		parts = parts[1:]
	}

	if len(parts) == 0 {
		return nil, ErrInvalidPath
	}

	epID, err := parseUint(parts[0], 16)
	if err != nil {
		return nil, fmt.Errorf("endpoint: %w", err)
	}
	p.EndpointID = uint16(epID)

	if len(parts) == 1 {
		p.IsPartial = true
		return p, nil
	}

	clusterID, err := parseClusterID(parts[1])
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}
	p.ClusterID = clusterID

	if len(parts) == 2 {
		p.IsPartial = true
		return p, nil
	}

	// Command path (endpoint/cluster/cmd/id)
	if parts[2] == "cmd" {
		p.IsCommand = true
		if len(parts) != 4 {
			return nil, fmt.Errorf("%w: command path needs exactly one command", ErrInvalidPath)
		}
		cmdID, err := parseCommandID(parts[3], p.ClusterID)
		if err != nil {
			return nil, fmt.Errorf("command: %w", err)
		}
		p.CommandID = cmdID
		return p, nil
	}

	if len(parts) > 3 {
		return nil, ErrInvalidPath
	}

	attrID, err := parseAttributeID(parts[2], p.ClusterID)
	if err != nil {
		return nil, fmt.Errorf("attribute: %w", err)
	}
	p.AttributeID = attrID

	return p, nil
}

// String returns the path in numeric form.
func (p *Path) String() string {
	var sb strings.Builder

	if p.Remote {
		fmt.Fprintf(&sb, "@%x/", p.NodeID)
	}

	sb.WriteString(strconv.Itoa(int(p.EndpointID)))

	if p.IsPartial && p.ClusterID == 0 {
		return sb.String()
	}

	fmt.Fprintf(&sb, "/0x%04X", p.ClusterID)

	if p.IsPartial {
		return sb.String()
	}

	if p.IsCommand {
		fmt.Fprintf(&sb, "/cmd/0x%02X", p.CommandID)
	} else {
		fmt.Fprintf(&sb, "/0x%04X", p.AttributeID)
	}

	return sb.String()
}

func parseClusterID(s string) (uint32, error) {
	if id, err := parseUint(s, 32); err == nil {
		return uint32(id), nil
	}
	if id, ok := ResolveClusterName(s); ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrInvalidNumber, s)
}

func parseAttributeID(s string, clusterID uint32) (uint32, error) {
	if id, err := parseUint(s, 32); err == nil {
		return uint32(id), nil
	}
	if id, ok := ResolveAttributeName(clusterID, s); ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrInvalidNumber, s)
}

func parseCommandID(s string, clusterID uint32) (uint32, error) {
	if id, err := parseUint(s, 32); err == nil {
		return uint32(id), nil
	}
	if id, ok := ResolveCommandName(clusterID, s); ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrInvalidNumber, s)
}

// parseUint parses a decimal or 0x-prefixed hex number of the given size.
func parseUint(s string, bits int) (uint64, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, bits)
	}
	return strconv.ParseUint(s, 10, bits)
}
