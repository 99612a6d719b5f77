package clusters

import "github.com/mash-protocol/mash-endpoint/pkg/model"

// Device type names used in configuration.
const (
	DeviceTypeOnOffLight         = "on_off_light"
	DeviceTypeDimmableLight      = "dimmable_light"
	DeviceTypeExtendedColorLight = "extended_color_light"
	DeviceTypeOnOffSwitch        = "on_off_switch"
	DeviceTypeRootNode           = "root_node"
)

var deviceTypes = []model.DeviceType{
	{ID: 0x0100, Revision: 3, Name: DeviceTypeOnOffLight},
	{ID: 0x0101, Revision: 3, Name: DeviceTypeDimmableLight},
	{ID: 0x010D, Revision: 4, Name: DeviceTypeExtendedColorLight},
	{ID: 0x0103, Revision: 3, Name: DeviceTypeOnOffSwitch},
	{ID: 0x0016, Revision: 2, Name: DeviceTypeRootNode},
}

// LookupDeviceType returns the device type registered under name.
func LookupDeviceType(name string) (model.DeviceType, bool) {
	for _, dt := range deviceTypes {
		if dt.Name == name {
			return dt, true
		}
	}
	return model.DeviceType{}, false
}
