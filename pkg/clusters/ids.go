package clusters

// Cluster IDs.
const (
	IdentifyID         uint32 = 0x0003
	GroupsID           uint32 = 0x0004
	OnOffID            uint32 = 0x0006
	LevelControlID     uint32 = 0x0008
	DescriptorID       uint32 = 0x001D
	BindingID          uint32 = 0x001E
	ScenesManagementID uint32 = 0x0062
	ColorControlID     uint32 = 0x0300
)

// Identify attributes and commands.
const (
	IdentifyAttrIdentifyTime uint32 = 0x0000
	IdentifyAttrIdentifyType uint32 = 0x0001

	IdentifyCmdIdentify      uint32 = 0x00
	IdentifyCmdTriggerEffect uint32 = 0x40
)

// Groups attributes and commands.
const (
	GroupsAttrNameSupport uint32 = 0x0000

	GroupsCmdAddGroup           uint32 = 0x00
	GroupsCmdViewGroup          uint32 = 0x01
	GroupsCmdGetGroupMembership uint32 = 0x02
	GroupsCmdRemoveGroup        uint32 = 0x03
	GroupsCmdRemoveAllGroups    uint32 = 0x04
)

// ScenesManagement attributes.
const (
	ScenesAttrSceneTableSize uint32 = 0x0006
)

// OnOff attributes, commands and features.
const (
	OnOffAttrOnOff              uint32 = 0x0000
	OnOffAttrGlobalSceneControl uint32 = 0x4000
	OnOffAttrOnTime             uint32 = 0x4001
	OnOffAttrOffWaitTime        uint32 = 0x4002
	OnOffAttrStartUpOnOff       uint32 = 0x4003

	OnOffCmdOff    uint32 = 0x00
	OnOffCmdOn     uint32 = 0x01
	OnOffCmdToggle uint32 = 0x02

	OnOffFeatureLighting uint32 = 0x01
)

// LevelControl attributes, commands and features.
const (
	LevelAttrCurrentLevel        uint32 = 0x0000
	LevelAttrRemainingTime       uint32 = 0x0001
	LevelAttrMinLevel            uint32 = 0x0002
	LevelAttrMaxLevel            uint32 = 0x0003
	LevelAttrOptions             uint32 = 0x000F
	LevelAttrOnLevel             uint32 = 0x0011
	LevelAttrStartUpCurrentLevel uint32 = 0x4000

	LevelCmdMoveToLevel          uint32 = 0x00
	LevelCmdStop                 uint32 = 0x03
	LevelCmdMoveToLevelWithOnOff uint32 = 0x04
	LevelCmdStopWithOnOff        uint32 = 0x07

	LevelFeatureOnOff    uint32 = 0x01
	LevelFeatureLighting uint32 = 0x02
)

// ColorControl attributes, commands and features.
const (
	ColorAttrCurrentHue                    uint32 = 0x0000
	ColorAttrCurrentSaturation             uint32 = 0x0001
	ColorAttrRemainingTime                 uint32 = 0x0002
	ColorAttrCurrentX                      uint32 = 0x0003
	ColorAttrCurrentY                      uint32 = 0x0004
	ColorAttrColorTemperatureMireds        uint32 = 0x0007
	ColorAttrColorMode                     uint32 = 0x0008
	ColorAttrOptions                       uint32 = 0x000F
	ColorAttrEnhancedColorMode             uint32 = 0x4001
	ColorAttrColorCapabilities             uint32 = 0x400A
	ColorAttrColorTempPhysicalMinMireds    uint32 = 0x400B
	ColorAttrColorTempPhysicalMaxMireds    uint32 = 0x400C
	ColorAttrCoupleColorTempToLevelMin     uint32 = 0x400D
	ColorAttrStartUpColorTemperatureMireds uint32 = 0x4010

	ColorCmdMoveToHue              uint32 = 0x00
	ColorCmdMoveToSaturation       uint32 = 0x03
	ColorCmdMoveToHueAndSaturation uint32 = 0x06
	ColorCmdMoveToColor            uint32 = 0x07
	ColorCmdMoveToColorTemperature uint32 = 0x0A
	ColorCmdStopMoveStep           uint32 = 0x47

	ColorFeatureHueSaturation    uint32 = 0x01
	ColorFeatureXY               uint32 = 0x08
	ColorFeatureColorTemperature uint32 = 0x10
)

// Color modes as stored in ColorMode and EnhancedColorMode.
const (
	ColorModeHueSaturation    uint8 = 0
	ColorModeXY               uint8 = 1
	ColorModeColorTemperature uint8 = 2
)

// Descriptor attributes.
const (
	DescriptorAttrDeviceTypeList uint32 = 0x0000
	DescriptorAttrServerList     uint32 = 0x0001
	DescriptorAttrClientList     uint32 = 0x0002
	DescriptorAttrPartsList      uint32 = 0x0003
)

// Binding attributes.
const (
	BindingAttrBinding uint32 = 0x0000
)

// ClusterName returns a short name for a cluster ID.
func ClusterName(id uint32) string {
	switch id {
	case IdentifyID:
		return "identify"
	case GroupsID:
		return "groups"
	case OnOffID:
		return "on_off"
	case LevelControlID:
		return "level_control"
	case DescriptorID:
		return "descriptor"
	case BindingID:
		return "binding"
	case ScenesManagementID:
		return "scenes_management"
	case ColorControlID:
		return "color_control"
	default:
		return "unknown"
	}
}

// ClusterIDByName is the inverse of ClusterName.
func ClusterIDByName(name string) (uint32, bool) {
	for _, id := range []uint32{
		IdentifyID, GroupsID, OnOffID, LevelControlID,
		DescriptorID, BindingID, ScenesManagementID, ColorControlID,
	} {
		if ClusterName(id) == name {
			return id, true
		}
	}
	return 0, false
}
