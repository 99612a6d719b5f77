package button

import (
	"log/slog"

	"github.com/mash-protocol/mash-endpoint/internal/config"
	"github.com/mash-protocol/mash-endpoint/internal/resolver"
)

// Mode selects where a press acts.
type Mode uint8

const (
	ModeRemote Mode = iota
	ModeLocal
	ModeDual
)

func (m Mode) String() string {
	switch m {
	case ModeRemote:
		return config.ModeRemote
	case ModeLocal:
		return config.ModeLocal
	case ModeDual:
		return config.ModeDual
	default:
		return "unknown"
	}
}

func (m Mode) remote() bool { return m == ModeRemote || m == ModeDual }
func (m Mode) local() bool  { return m == ModeLocal || m == ModeDual }

// ActionCluster is the cluster a short press acts on.
type ActionCluster uint8

const (
	ClusterOnOff ActionCluster = iota
	ClusterIdentify
	ClusterUnsupported
)

func (c ActionCluster) String() string {
	switch c {
	case ClusterOnOff:
		return resolver.ClusterOnOff
	case ClusterIdentify:
		return resolver.ClusterIdentify
	default:
		return "unsupported"
	}
}

// Command is the command a short press sends.
type Command uint8

const (
	CommandToggle Command = iota
	CommandOn
	CommandOff
	CommandIdentify
	CommandUnsupported
)

func (c Command) String() string {
	switch c {
	case CommandToggle:
		return "toggle"
	case CommandOn:
		return "on"
	case CommandOff:
		return "off"
	case CommandIdentify:
		return "identify"
	default:
		return "unsupported"
	}
}

func parseMode(s string, logger *slog.Logger) Mode {
	switch s {
	case "", config.ModeRemote:
		return ModeRemote
	case config.ModeLocal:
		return ModeLocal
	case config.ModeDual:
		return ModeDual
	}
	logger.Warn("unknown button mode, using remote", "mode", s)
	return ModeRemote
}

func parseCluster(s string, logger *slog.Logger) ActionCluster {
	switch s {
	case "", resolver.ClusterOnOff:
		return ClusterOnOff
	case resolver.ClusterIdentify:
		return ClusterIdentify
	}
	logger.Warn("unsupported button action cluster", "cluster", s)
	return ClusterUnsupported
}

func parseCommand(cluster ActionCluster, s string, logger *slog.Logger) Command {
	switch cluster {
	case ClusterOnOff:
		switch s {
		case "", "toggle":
			return CommandToggle
		case "on":
			return CommandOn
		case "off":
			return CommandOff
		}
		logger.Warn("unknown on/off command, using toggle", "command", s)
		return CommandToggle
	case ClusterIdentify:
		return CommandIdentify
	default:
		return CommandUnsupported
	}
}

// defaultBindingEndpoint returns the first switch endpoint, or 0.
func defaultBindingEndpoint(raws []resolver.RawEndpoint) uint16 {
	for _, raw := range raws {
		if raw.DeviceType == resolver.DeviceTypeOnOffSwitch {
			return raw.ID
		}
	}
	return 0
}

// defaultTargetEndpoint returns the first non-switch endpoint with an
// on/off cluster, or 0.
func defaultTargetEndpoint(raws []resolver.RawEndpoint) uint16 {
	for _, raw := range raws {
		if raw.DeviceType == resolver.DeviceTypeOnOffSwitch {
			continue
		}
		if resolver.Resolve(raw, nil).OnOff.Enabled {
			return raw.ID
		}
	}
	return 0
}
