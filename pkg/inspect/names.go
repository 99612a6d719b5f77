package inspect

import (
	"fmt"
	"strings"

	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// Name tables for resolving human-readable names to IDs. Names follow the
// attribute and command metadata; lookups ignore case and underscores, so
// "on_off" and "OnOff" are the same name.
var (
	attributeNames = map[uint32]map[string]uint32{
		clusters.IdentifyID: {
			"IdentifyTime": clusters.IdentifyAttrIdentifyTime,
			"IdentifyType": clusters.IdentifyAttrIdentifyType,
		},
		clusters.GroupsID: {
			"NameSupport": clusters.GroupsAttrNameSupport,
		},
		clusters.ScenesManagementID: {
			"SceneTableSize": clusters.ScenesAttrSceneTableSize,
		},
		clusters.OnOffID: {
			"OnOff":              clusters.OnOffAttrOnOff,
			"GlobalSceneControl": clusters.OnOffAttrGlobalSceneControl,
			"OnTime":             clusters.OnOffAttrOnTime,
			"OffWaitTime":        clusters.OnOffAttrOffWaitTime,
			"StartUpOnOff":       clusters.OnOffAttrStartUpOnOff,
		},
		clusters.LevelControlID: {
			"CurrentLevel":        clusters.LevelAttrCurrentLevel,
			"RemainingTime":       clusters.LevelAttrRemainingTime,
			"MinLevel":            clusters.LevelAttrMinLevel,
			"MaxLevel":            clusters.LevelAttrMaxLevel,
			"Options":             clusters.LevelAttrOptions,
			"OnLevel":             clusters.LevelAttrOnLevel,
			"StartUpCurrentLevel": clusters.LevelAttrStartUpCurrentLevel,
		},
		clusters.ColorControlID: {
			"CurrentHue":                      clusters.ColorAttrCurrentHue,
			"CurrentSaturation":               clusters.ColorAttrCurrentSaturation,
			"RemainingTime":                   clusters.ColorAttrRemainingTime,
			"CurrentX":                        clusters.ColorAttrCurrentX,
			"CurrentY":                        clusters.ColorAttrCurrentY,
			"ColorTemperatureMireds":          clusters.ColorAttrColorTemperatureMireds,
			"ColorMode":                       clusters.ColorAttrColorMode,
			"Options":                         clusters.ColorAttrOptions,
			"EnhancedColorMode":               clusters.ColorAttrEnhancedColorMode,
			"ColorCapabilities":               clusters.ColorAttrColorCapabilities,
			"ColorTempPhysicalMinMireds":      clusters.ColorAttrColorTempPhysicalMinMireds,
			"ColorTempPhysicalMaxMireds":      clusters.ColorAttrColorTempPhysicalMaxMireds,
			"CoupleColorTempToLevelMinMireds": clusters.ColorAttrCoupleColorTempToLevelMin,
			"StartUpColorTemperatureMireds":   clusters.ColorAttrStartUpColorTemperatureMireds,
		},
		clusters.DescriptorID: {
			"DeviceTypeList": clusters.DescriptorAttrDeviceTypeList,
			"ServerList":     clusters.DescriptorAttrServerList,
			"ClientList":     clusters.DescriptorAttrClientList,
			"PartsList":      clusters.DescriptorAttrPartsList,
		},
		clusters.BindingID: {
			"Binding": clusters.BindingAttrBinding,
		},
	}

	// Global attributes exist on every cluster.
	globalAttributeNames = map[string]uint32{
		"ClusterRevision":     model.AttrIDClusterRevision,
		"FeatureMap":          model.AttrIDFeatureMap,
		"AttributeList":       model.AttrIDAttributeList,
		"AcceptedCommandList": model.AttrIDAcceptedCommandList,
	}

	knownClusters = []uint32{
		clusters.IdentifyID, clusters.GroupsID, clusters.OnOffID, clusters.LevelControlID,
		clusters.DescriptorID, clusters.BindingID, clusters.ScenesManagementID, clusters.ColorControlID,
	}

	commandNames = map[uint32]map[string]uint32{
		clusters.IdentifyID: {
			"Identify":      clusters.IdentifyCmdIdentify,
			"TriggerEffect": clusters.IdentifyCmdTriggerEffect,
		},
		clusters.GroupsID: {
			"AddGroup":           clusters.GroupsCmdAddGroup,
			"ViewGroup":          clusters.GroupsCmdViewGroup,
			"GetGroupMembership": clusters.GroupsCmdGetGroupMembership,
			"RemoveGroup":        clusters.GroupsCmdRemoveGroup,
			"RemoveAllGroups":    clusters.GroupsCmdRemoveAllGroups,
		},
		clusters.OnOffID: {
			"Off":    clusters.OnOffCmdOff,
			"On":     clusters.OnOffCmdOn,
			"Toggle": clusters.OnOffCmdToggle,
		},
		clusters.LevelControlID: {
			"MoveToLevel":          clusters.LevelCmdMoveToLevel,
			"Stop":                 clusters.LevelCmdStop,
			"MoveToLevelWithOnOff": clusters.LevelCmdMoveToLevelWithOnOff,
			"StopWithOnOff":        clusters.LevelCmdStopWithOnOff,
		},
		clusters.ColorControlID: {
			"MoveToHue":              clusters.ColorCmdMoveToHue,
			"MoveToSaturation":       clusters.ColorCmdMoveToSaturation,
			"MoveToHueAndSaturation": clusters.ColorCmdMoveToHueAndSaturation,
			"MoveToColor":            clusters.ColorCmdMoveToColor,
			"MoveToColorTemperature": clusters.ColorCmdMoveToColorTemperature,
			"StopMoveStep":           clusters.ColorCmdStopMoveStep,
		},
	}
)

// normalizeName folds case and drops separators.
func normalizeName(name string) string {
	name = strings.ToLower(name)
	return strings.NewReplacer("_", "", "-", "").Replace(name)
}

func lookup(table map[string]uint32, name string) (uint32, bool) {
	want := normalizeName(name)
	for k, v := range table {
		if normalizeName(k) == want {
			return v, true
		}
	}
	return 0, false
}

func reverse(table map[string]uint32, id uint32) string {
	for k, v := range table {
		if v == id {
			return k
		}
	}
	return ""
}

// ResolveClusterName resolves a cluster name to its ID.
func ResolveClusterName(name string) (uint32, bool) {
	want := normalizeName(name)
	for _, id := range knownClusters {
		if normalizeName(clusters.ClusterName(id)) == want {
			return id, true
		}
	}
	return 0, false
}

// ResolveAttributeName resolves an attribute name to its ID for a given
// cluster. Global attribute names resolve on any cluster.
func ResolveAttributeName(clusterID uint32, name string) (uint32, bool) {
	if id, ok := lookup(attributeNames[clusterID], name); ok {
		return id, true
	}
	return lookup(globalAttributeNames, name)
}

// ResolveCommandName resolves a command name to its ID for a given cluster.
func ResolveCommandName(clusterID uint32, name string) (uint32, bool) {
	return lookup(commandNames[clusterID], name)
}

// GetClusterName returns the name for a cluster ID.
func GetClusterName(id uint32) string {
	name := clusters.ClusterName(id)
	if name == "unknown" {
		return fmt.Sprintf("cluster_0x%04X", id)
	}
	return name
}

// GetAttributeName returns the name for an attribute ID within a cluster,
// or "" when unknown.
func GetAttributeName(clusterID, attrID uint32) string {
	if name := reverse(attributeNames[clusterID], attrID); name != "" {
		return name
	}
	return reverse(globalAttributeNames, attrID)
}

// GetCommandName returns the name for a command ID within a cluster, or ""
// when unknown.
func GetCommandName(clusterID, cmdID uint32) string {
	return reverse(commandNames[clusterID], cmdID)
}
