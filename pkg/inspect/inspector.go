package inspect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// Inspector errors.
var (
	ErrPartialPath = errors.New("path does not name an attribute")
	ErrNotCommand  = errors.New("path is not a command path")
	ErrRemotePath  = errors.New("path addresses a remote node")
)

// Inspector provides inspection and mutation capabilities for a local node.
type Inspector struct {
	node *model.Node
}

// NewInspector creates a new Inspector for the given node.
func NewInspector(node *model.Node) *Inspector {
	return &Inspector{node: node}
}

// Node returns the underlying node.
func (i *Inspector) Node() *model.Node {
	return i.node
}

// NodeTree represents the complete node structure for display.
type NodeTree struct {
	NodeID    uint64
	VendorID  uint16
	ProductID uint16
	Endpoints []EndpointInfo
}

// EndpointInfo represents endpoint information for display.
type EndpointInfo struct {
	ID          uint16
	DeviceTypes []model.DeviceType
	Clusters    []ClusterInfo
}

// ClusterInfo represents cluster information for display.
type ClusterInfo struct {
	ID         uint32
	Name       string
	Role       model.ClusterRole
	FeatureMap uint32
	Revision   uint16
	Attributes []AttributeInfo
	Commands   []CommandInfo
}

// AttributeInfo represents attribute information for display.
type AttributeInfo struct {
	ID       uint32
	Name     string
	Value    any
	Type     model.DataType
	Access   model.Access
	Nullable bool
}

// CommandInfo represents command information for display.
type CommandInfo struct {
	ID   uint32
	Name string
}

// InspectNode returns a complete tree of the node structure.
func (i *Inspector) InspectNode() *NodeTree {
	tree := &NodeTree{
		NodeID:    i.node.NodeID(),
		VendorID:  i.node.VendorID(),
		ProductID: i.node.ProductID(),
	}
	for _, ep := range i.node.Endpoints() {
		tree.Endpoints = append(tree.Endpoints, inspectEndpoint(ep))
	}
	return tree
}

// InspectEndpoint returns information about a specific endpoint.
func (i *Inspector) InspectEndpoint(epID uint16) (*EndpointInfo, error) {
	ep, err := i.node.GetEndpoint(epID)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", err, epID)
	}
	info := inspectEndpoint(ep)
	return &info, nil
}

// InspectCluster returns information about a specific cluster.
func (i *Inspector) InspectCluster(epID uint16, clusterID uint32) (*ClusterInfo, error) {
	c, err := i.node.GetCluster(epID, clusterID)
	if err != nil {
		return nil, fmt.Errorf("%w: %d/0x%04X", err, epID, clusterID)
	}
	info := inspectCluster(c)
	return &info, nil
}

func inspectEndpoint(ep *model.Endpoint) EndpointInfo {
	info := EndpointInfo{
		ID:          ep.ID(),
		DeviceTypes: ep.DeviceTypes(),
	}
	for _, c := range ep.Clusters() {
		info.Clusters = append(info.Clusters, inspectCluster(c))
	}
	return info
}

func inspectCluster(c *model.Cluster) ClusterInfo {
	info := ClusterInfo{
		ID:         c.ID(),
		Name:       c.Name(),
		Role:       c.Role(),
		FeatureMap: c.FeatureMap(),
		Revision:   c.Revision(),
	}

	for _, attr := range c.Attributes() {
		meta := attr.Metadata()
		v, err := c.ReadAttribute(meta.ID)
		if err != nil {
			continue
		}
		info.Attributes = append(info.Attributes, AttributeInfo{
			ID:       meta.ID,
			Name:     meta.Name,
			Value:    v,
			Type:     meta.Type,
			Access:   meta.Access,
			Nullable: meta.Nullable,
		})
	}

	for _, id := range c.CommandList() {
		cmd, err := c.GetCommand(id)
		if err != nil {
			continue
		}
		info.Commands = append(info.Commands, CommandInfo{ID: id, Name: cmd.Metadata().Name})
	}

	return info
}

func localAttribute(path *Path) (model.AttributePath, error) {
	if path.Remote {
		return model.AttributePath{}, ErrRemotePath
	}
	if path.IsPartial || path.IsCommand {
		return model.AttributePath{}, ErrPartialPath
	}
	return model.AttributePath{
		Endpoint:  path.EndpointID,
		Cluster:   path.ClusterID,
		Attribute: path.AttributeID,
	}, nil
}

// ReadAttribute reads an attribute value using a path.
func (i *Inspector) ReadAttribute(path *Path) (any, error) {
	ap, err := localAttribute(path)
	if err != nil {
		return nil, err
	}
	v, err := i.node.ReadAttribute(ap)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ap, err)
	}
	return v, nil
}

// ReadAllAttributes reads all attribute values of a cluster.
func (i *Inspector) ReadAllAttributes(epID uint16, clusterID uint32) (map[uint32]any, error) {
	c, err := i.node.GetCluster(epID, clusterID)
	if err != nil {
		return nil, fmt.Errorf("%w: %d/0x%04X", err, epID, clusterID)
	}
	return c.ReadAllAttributes(), nil
}

// WriteAttribute writes an attribute value using a path. Write access is
// enforced and the write runs under the stack lock, like a remote write.
func (i *Inspector) WriteAttribute(ctx context.Context, path *Path, value any) error {
	ap, err := localAttribute(path)
	if err != nil {
		return err
	}
	lock := i.node.Lock()
	if err := lock.Lock(ctx); err != nil {
		return err
	}
	defer lock.Unlock()
	if err := i.node.WriteAttributeLocked(ap, value); err != nil {
		return fmt.Errorf("%s: %w", ap, err)
	}
	return nil
}

// InvokeCommand invokes a command using a path.
func (i *Inspector) InvokeCommand(ctx context.Context, path *Path, params map[string]any) (map[string]any, error) {
	if path.Remote {
		return nil, ErrRemotePath
	}
	if !path.IsCommand {
		return nil, ErrNotCommand
	}
	cp := model.CommandPath{Endpoint: path.EndpointID, Cluster: path.ClusterID, Command: path.CommandID}
	resp, err := i.node.Invoke(ctx, cp, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cp, err)
	}
	return resp, nil
}

// FormatNodeTree formats the node tree for display.
func (i *Inspector) FormatNodeTree(tree *NodeTree, formatter *Formatter) string {
	if formatter == nil {
		formatter = NewFormatter()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Node: %016X\n", tree.NodeID)
	fmt.Fprintf(&sb, "Vendor: 0x%04X  Product: 0x%04X\n", tree.VendorID, tree.ProductID)
	sb.WriteString("---\n")

	for _, ep := range tree.Endpoints {
		sb.WriteString(formatEndpoint(&ep, formatter, 0))
	}
	return sb.String()
}

// FormatEndpoint formats an endpoint for display.
func (i *Inspector) FormatEndpoint(ep *EndpointInfo, formatter *Formatter) string {
	if formatter == nil {
		formatter = NewFormatter()
	}
	return formatEndpoint(ep, formatter, 0)
}

// FormatCluster formats a cluster for display.
func (i *Inspector) FormatCluster(c *ClusterInfo, formatter *Formatter) string {
	if formatter == nil {
		formatter = NewFormatter()
	}
	return formatCluster(c, formatter, 0)
}

func formatEndpoint(ep *EndpointInfo, f *Formatter, depth int) string {
	var sb strings.Builder

	header := fmt.Sprintf("Endpoint %d", ep.ID)
	if len(ep.DeviceTypes) > 0 {
		names := make([]string, 0, len(ep.DeviceTypes))
		for _, dt := range ep.DeviceTypes {
			names = append(names, dt.Name)
		}
		header += ": " + strings.Join(names, ", ")
	}
	sb.WriteString(f.Indent(depth, header) + "\n")

	for _, c := range ep.Clusters {
		sb.WriteString(formatCluster(&c, f, depth+1))
	}
	return sb.String()
}

func formatCluster(c *ClusterInfo, f *Formatter, depth int) string {
	var sb strings.Builder

	header := fmt.Sprintf("%s (0x%04X, rev %d, %s)", GetClusterName(c.ID), c.ID, c.Revision, c.Role)
	if c.FeatureMap != 0 {
		header += " features " + FormatFeatureMap(c.FeatureMap)
	}
	sb.WriteString(f.Indent(depth, header) + "\n")

	for _, attr := range c.Attributes {
		sb.WriteString(f.Indent(depth+1, formatAttributeInfo(&attr, c.ID, f)) + "\n")
	}
	for _, cmd := range c.Commands {
		sb.WriteString(f.Indent(depth+1, fmt.Sprintf("[cmd 0x%02X] %s", cmd.ID, cmd.Name)) + "\n")
	}
	return sb.String()
}

func formatAttributeInfo(attr *AttributeInfo, clusterID uint32, f *Formatter) string {
	name := attr.Name
	if name == "" {
		name = GetAttributeName(clusterID, attr.ID)
		if name == "" {
			name = fmt.Sprintf("attr_0x%04X", attr.ID)
		}
	}

	line := fmt.Sprintf("%s = %s", name, f.FormatValue(attr.Value))
	if f.ShowIDs {
		line = fmt.Sprintf("[0x%04X] %s", attr.ID, line)
	}
	if f.ShowMetadata {
		line += fmt.Sprintf(" (%s, %s)", attr.Type, attr.Access)
	}
	return line
}
