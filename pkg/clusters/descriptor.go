package clusters

import (
	"context"
	"errors"
	"fmt"

	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// ErrUnsupportedDeviceType is returned for device type names that have no
// registered ID.
var ErrUnsupportedDeviceType = errors.New("unsupported device type")

// NewDescriptor creates a Descriptor cluster. Its list attributes are
// computed from the owning endpoint on every read.
func NewDescriptor() *model.Cluster {
	c := model.NewCluster(DescriptorID, "Descriptor", 2)

	for _, a := range []struct {
		id   uint32
		name string
	}{
		{DescriptorAttrDeviceTypeList, "DeviceTypeList"},
		{DescriptorAttrServerList, "ServerList"},
		{DescriptorAttrClientList, "ClientList"},
		{DescriptorAttrPartsList, "PartsList"},
	} {
		c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
			ID:     a.id,
			Name:   a.name,
			Type:   model.DataTypeArray,
			Access: model.AccessReadOnly,
		}))
	}

	c.SetReadHook(func(ctx context.Context, attrID uint32) (any, bool) {
		ep := c.Endpoint()
		if ep == nil {
			return nil, false
		}
		switch attrID {
		case DescriptorAttrDeviceTypeList:
			return ep.DeviceTypes(), true
		case DescriptorAttrServerList:
			return roleList(ep, model.RoleServer), true
		case DescriptorAttrClientList:
			return roleList(ep, model.RoleClient), true
		case DescriptorAttrPartsList:
			return partsList(ep), true
		}
		return nil, false
	})
	return c
}

func roleList(ep *model.Endpoint, role model.ClusterRole) []uint32 {
	ids := []uint32{}
	for _, c := range ep.Clusters() {
		if c.Role()&role != 0 {
			ids = append(ids, c.ID())
		}
	}
	return ids
}

func partsList(ep *model.Endpoint) []uint16 {
	parts := []uint16{}
	if ep.ID() != model.EndpointRoot || ep.Node() == nil {
		return parts
	}
	for _, other := range ep.Node().Endpoints() {
		if other.ID() != model.EndpointRoot {
			parts = append(parts, other.ID())
		}
	}
	return parts
}

// AddDescriptorAndRegister adds a Descriptor cluster to ep and records the
// device type registered under deviceType.
func AddDescriptorAndRegister(ep *model.Endpoint, deviceType string) error {
	if err := ep.AddCluster(NewDescriptor()); err != nil {
		return fmt.Errorf("descriptor: %w", err)
	}
	dt, ok := LookupDeviceType(deviceType)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedDeviceType, deviceType)
	}
	ep.AddDeviceType(dt)
	return nil
}
