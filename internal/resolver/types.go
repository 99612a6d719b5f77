package resolver

// ClusterBlock is the presence information every cluster block carries.
// Present means the key appeared in the configuration (even with a null
// value); Enabled is an explicit override when non-nil.
type ClusterBlock struct {
	Present bool
	Enabled *bool
}

// IdentifyBlock is the raw identify cluster block.
type IdentifyBlock struct {
	ClusterBlock
	IdentifyTime *int
	IdentifyType *int
}

// GroupsBlock is the raw groups cluster block.
type GroupsBlock struct {
	ClusterBlock
}

// ScenesBlock is the raw scenes management cluster block.
type ScenesBlock struct {
	ClusterBlock
	SceneTableSize *int
}

// OnOffBlock is the raw on/off cluster block.
type OnOffBlock struct {
	ClusterBlock
	State    *bool
	Features []string
}

// LevelBlock is the raw level control cluster block.
type LevelBlock struct {
	ClusterBlock
	CurrentLevel *int
	Options      *int
	OnLevel      *int
	Features     []string
}

// ColorBlock is the raw color control cluster block.
type ColorBlock struct {
	ClusterBlock
	ColorMode              *string
	EnhancedColorMode      *string
	CurrentHue             *int
	CurrentSaturation      *int
	ColorTemperatureMireds *int
	RemainingTime          *int
	Features               []string
}

// RawEndpoint is one endpoint as written in the configuration. Absent
// values are nil. It is never modified after loading.
type RawEndpoint struct {
	ID         uint16
	DeviceType string

	Identify IdentifyBlock
	Groups   GroupsBlock
	Scenes   ScenesBlock
	OnOff    OnOffBlock
	Level    LevelBlock
	Color    ColorBlock
}

// Cluster keys as used in configuration and the default tables.
const (
	ClusterIdentify = "identify"
	ClusterGroups   = "groups"
	ClusterScenes   = "scenes_management"
	ClusterOnOff    = "on_off"
	ClusterLevel    = "level_control"
	ClusterColor    = "color_control"
)

// Feature names.
const (
	FeatureLighting         = "lighting"
	FeatureOnOff            = "on_off"
	FeatureColorTemperature = "color_temperature"
	FeatureXY               = "xy"
)

// Color modes after resolution.
const (
	ColorModeHueSaturation    uint8 = 0
	ColorModeXY               uint8 = 1
	ColorModeColorTemperature uint8 = 2
	ColorModeUnknown          uint8 = 3
)

// IdentifyConfig is the resolved identify cluster.
type IdentifyConfig struct {
	Enabled      bool
	IdentifyTime uint16
	IdentifyType uint8
}

// GroupsConfig is the resolved groups cluster.
type GroupsConfig struct {
	Enabled bool
}

// ScenesConfig is the resolved scenes management cluster.
type ScenesConfig struct {
	Enabled        bool
	SceneTableSize uint16
}

// OnOffConfig is the resolved on/off cluster.
type OnOffConfig struct {
	Enabled  bool
	On       bool
	Lighting bool
}

// LevelConfig is the resolved level control cluster.
type LevelConfig struct {
	Enabled      bool
	CurrentLevel uint8
	Options      uint8
	HasOnLevel   bool
	OnLevel      uint8
	OnOff        bool
	Lighting     bool
}

// ColorConfig is the resolved color control cluster.
type ColorConfig struct {
	Enabled           bool
	ColorMode         uint8
	EnhancedColorMode uint8

	HasCurrentHue        bool
	CurrentHue           uint8
	HasCurrentSaturation bool
	CurrentSaturation    uint8
	HasColorTemperature  bool
	ColorTemperature     uint16
	HasRemainingTime     bool
	RemainingTime        uint16

	ColorTemperatureFeature bool
	XY                      bool
}

// Resolved is a fully defaulted endpoint. Every field is concrete; the Has*
// flags record whether an initial value was configured.
type Resolved struct {
	ID         uint16
	DeviceType string

	Identify IdentifyConfig
	Groups   GroupsConfig
	Scenes   ScenesConfig
	OnOff    OnOffConfig
	Level    LevelConfig
	Color    ColorConfig
}
