package module

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mash-protocol/mash-endpoint/internal/driver"
	"github.com/mash-protocol/mash-endpoint/internal/resolver"
	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// LightOptions configures a light module.
type LightOptions struct {
	// Strip configures the simulated LED strip created by InitDrivers.
	Strip driver.StripConfig

	// NewLight overrides strip creation.
	NewLight func() (driver.Light, error)
}

// LightDevice is the driver handle of a light module: the light driver,
// the primary endpoint and the identify session.
type LightDevice struct {
	light  driver.Light
	logger *slog.Logger

	mu          sync.Mutex
	primary     uint16
	hasPrimary  bool
	identifying bool
	savedOn     bool
	savedHSV    driver.HSV
}

// Light returns the light driver.
func (d *LightDevice) Light() driver.Light { return d.light }

// Primary returns the first endpoint built with this device.
func (d *LightDevice) Primary() (uint16, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.primary, d.hasPrimary
}

// Identifying reports whether an identify session is active.
func (d *LightDevice) Identifying() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.identifying
}

func (d *LightDevice) claimPrimary(ep uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.hasPrimary {
		d.primary = ep
		d.hasPrimary = true
	}
}

// LightModule drives on/off and dimmable lights from one LED strip.
type LightModule struct {
	name        string
	deviceTypes []string
	opts        LightOptions

	// physical color temperature range; zero when the module does not
	// restrict it
	minMireds uint16
	maxMireds uint16
	startUp   uint16
}

var (
	_ Module           = (*LightModule)(nil)
	_ PostBuilder      = (*LightModule)(nil)
	_ AttributeUpdater = (*LightModule)(nil)
	_ Identifier       = (*LightModule)(nil)
	_ PostStarter      = (*LightModule)(nil)
)

// NewLightModule creates the light module for on_off_light and
// dimmable_light endpoints.
func NewLightModule(opts LightOptions) *LightModule {
	return &LightModule{
		name:        "light",
		deviceTypes: []string{resolver.DeviceTypeOnOffLight, resolver.DeviceTypeDimmableLight},
		opts:        opts,
	}
}

// Name implements Module.
func (m *LightModule) Name() string { return m.name }

// Supports implements Module.
func (m *LightModule) Supports(raw resolver.RawEndpoint) bool {
	return slices.Contains(m.deviceTypes, raw.DeviceType)
}

// InitDrivers creates the light driver.
func (m *LightModule) InitDrivers(ctx context.Context, rc *Context) (Handle, error) {
	logger := rc.Logger.With("module", m.name)

	var (
		l   driver.Light
		err error
	)
	if m.opts.NewLight != nil {
		l, err = m.opts.NewLight()
	} else {
		l, err = driver.NewStrip(m.opts.Strip, logger)
	}
	if err != nil {
		return nil, err
	}
	if m.opts.NewLight == nil && m.opts.Strip.LEDCount == 0 {
		logger.Warn("LED strip has no LEDs, visual updates are skipped")
	}
	return &LightDevice{light: l, logger: logger}, nil
}

func device(h Handle) (*LightDevice, error) {
	d, ok := h.(*LightDevice)
	if !ok || d == nil {
		return nil, ErrInvalidHandle
	}
	return d, nil
}

// BuildEndpoint implements Module.
func (m *LightModule) BuildEndpoint(rc *Context, cfg resolver.Resolved, h Handle) (*model.Endpoint, error) {
	d, err := device(h)
	if err != nil {
		return nil, err
	}

	ep := model.NewEndpoint(cfg.ID)
	err = AssembleClusters(rc, ep, cfg, Assembly{
		ColorTemperature: clusters.ColorTemperatureConfig{
			PhysicalMinMireds: m.minMireds,
			PhysicalMaxMireds: m.maxMireds,
			StartUpMireds:     m.startUp,
		},
	})
	if err != nil {
		return nil, err
	}
	d.claimPrimary(cfg.ID)
	return ep, nil
}

// PostBuild pushes the configured initial values: color temperature, hue
// and saturation first, then on/off, then level.
func (m *LightModule) PostBuild(ctx context.Context, rc *Context, ep *model.Endpoint, cfg resolver.Resolved, h Handle) error {
	id := ep.ID()
	update := func(cluster, attr uint32, v any) error {
		path := model.AttributePath{Endpoint: id, Cluster: cluster, Attribute: attr}
		if err := rc.Node.UpdateAttribute(ctx, path, v); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	}

	var errs []error
	if cfg.Color.Enabled {
		if cfg.Color.HasColorTemperature && cfg.Color.ColorTemperatureFeature {
			errs = append(errs, update(clusters.ColorControlID, clusters.ColorAttrColorTemperatureMireds,
				m.clampMireds(cfg.Color.ColorTemperature)))
		}
		if cfg.Color.HasCurrentHue {
			errs = append(errs, update(clusters.ColorControlID, clusters.ColorAttrCurrentHue, cfg.Color.CurrentHue))
		}
		if cfg.Color.HasCurrentSaturation {
			errs = append(errs, update(clusters.ColorControlID, clusters.ColorAttrCurrentSaturation, cfg.Color.CurrentSaturation))
		}
	}
	if cfg.OnOff.Enabled {
		errs = append(errs, update(clusters.OnOffID, clusters.OnOffAttrOnOff, cfg.OnOff.On))
	}
	if cfg.Level.Enabled {
		errs = append(errs, update(clusters.LevelControlID, clusters.LevelAttrCurrentLevel, cfg.Level.CurrentLevel))
	}
	return errors.Join(errs...)
}

func (m *LightModule) clampMireds(v uint16) uint16 {
	if m.minMireds == 0 && m.maxMireds == 0 {
		return v
	}
	return uint16(resolver.Clamp(int(v), int(m.minMireds), int(m.maxMireds)))
}

// AttributeUpdate applies a committed value to the light. Only the primary
// endpoint drives the light.
func (m *LightModule) AttributeUpdate(h Handle, path model.AttributePath, value any) error {
	d, err := device(h)
	if err != nil {
		return err
	}
	if primary, ok := d.Primary(); !ok || primary != path.Endpoint {
		return nil
	}

	v, ok := model.ToInt64(value)
	if !ok {
		if b, isBool := value.(bool); isBool {
			v, ok = boolInt(b), true
		}
	}
	if !ok {
		return nil
	}

	switch {
	case path.Cluster == clusters.OnOffID && path.Attribute == clusters.OnOffAttrOnOff:
		return d.light.SetPower(v != 0)
	case path.Cluster == clusters.LevelControlID && path.Attribute == clusters.LevelAttrCurrentLevel:
		return d.light.SetBrightness(uint8(driver.RemapToRange(int(v), driver.MatterBrightness, driver.StandardBrightness)))
	case path.Cluster == clusters.ColorControlID && path.Attribute == clusters.ColorAttrCurrentHue:
		return d.light.SetHue(uint16(driver.RemapToRange(int(v), driver.MatterHue, driver.StandardHue)))
	case path.Cluster == clusters.ColorControlID && path.Attribute == clusters.ColorAttrCurrentSaturation:
		return d.light.SetSaturation(uint8(driver.RemapToRange(int(v), driver.MatterSaturation, driver.StandardSaturation)))
	case path.Cluster == clusters.ColorControlID && path.Attribute == clusters.ColorAttrColorTemperatureMireds:
		mireds := m.clampMireds(uint16(resolver.Clamp(int(v), 0, 0xFFFF)))
		return d.light.SetTemperature(driver.MiredsToKelvin(mireds))
	}
	return nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Identify runs the identify session on the light: START saves the current
// state and lights at full brightness, STOP restores it.
func (m *LightModule) Identify(h Handle, kind model.IdentifyKind, endpoint uint16, effect, variant uint8) error {
	d, err := device(h)
	if err != nil {
		return err
	}
	d.logger.Info("identify", "kind", kind.String(), "endpoint", endpoint, "effect", effect, "variant", variant)

	switch kind {
	case model.IdentifyStart:
		d.mu.Lock()
		if d.identifying {
			d.mu.Unlock()
			d.logger.Info("already identifying, ignoring START", "endpoint", endpoint)
			return nil
		}
		d.identifying = true
		d.mu.Unlock()

		on := d.light.Brightness() > 0
		hsv := d.light.HSV()

		d.mu.Lock()
		d.savedOn = on
		d.savedHSV = hsv
		d.mu.Unlock()

		return d.light.SetBrightness(driver.StandardBrightness)

	case model.IdentifyStop:
		d.mu.Lock()
		if !d.identifying {
			d.mu.Unlock()
			d.logger.Info("identify STOP while not identifying", "endpoint", endpoint)
			return nil
		}
		on, hsv := d.savedOn, d.savedHSV
		d.mu.Unlock()

		err := errors.Join(
			d.light.SetHSV(hsv),
			d.light.SetPower(on),
		)

		d.mu.Lock()
		d.identifying = false
		d.mu.Unlock()
		return err
	}
	return nil
}

// PostStart applies the primary endpoint's attributes to the light:
// brightness, then color per ColorMode, then power. Clusters the endpoint
// does not have are skipped.
func (m *LightModule) PostStart(ctx context.Context, rc *Context, h Handle) error {
	d, err := device(h)
	if err != nil {
		return err
	}
	ep, ok := d.Primary()
	if !ok {
		return nil
	}

	read := func(cluster, attr uint32) (int64, bool, error) {
		c, err := rc.Node.GetCluster(ep, cluster)
		if err != nil {
			return 0, false, nil
		}
		v, err := c.ReadAttributeWithContext(ctx, attr)
		if err != nil {
			return 0, true, fmt.Errorf("read %s: %w", model.AttributePath{Endpoint: ep, Cluster: cluster, Attribute: attr}, err)
		}
		if b, isBool := v.(bool); isBool {
			return boolInt(b), true, nil
		}
		n, _ := model.ToInt64(v)
		return n, true, nil
	}

	var errs []error

	if level, present, err := read(clusters.LevelControlID, clusters.LevelAttrCurrentLevel); err != nil {
		errs = append(errs, err)
	} else if present {
		errs = append(errs, d.light.SetBrightness(driver.BrightnessFromLevel(uint8(level))))
	}

	errs = append(errs, m.applyColor(d, read))

	if on, present, err := read(clusters.OnOffID, clusters.OnOffAttrOnOff); err != nil {
		errs = append(errs, err)
	} else if present {
		errs = append(errs, d.light.SetPower(on != 0))
	}

	if err := errors.Join(errs...); err != nil {
		d.logger.Error("failed to apply light defaults", "endpoint", ep, "error", err)
		return err
	}
	d.logger.Info("light defaults applied", "endpoint", ep)
	return nil
}

func (m *LightModule) applyColor(d *LightDevice, read func(cluster, attr uint32) (int64, bool, error)) error {
	mode, present, err := read(clusters.ColorControlID, clusters.ColorAttrColorMode)
	if err != nil || !present {
		return err
	}

	switch uint8(mode) {
	case clusters.ColorModeColorTemperature:
		mireds, ok, err := read(clusters.ColorControlID, clusters.ColorAttrColorTemperatureMireds)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("color temperature mode without ColorTemperatureMireds")
		}
		return d.light.SetTemperature(driver.MiredsToKelvin(m.clampMireds(uint16(mireds))))

	case clusters.ColorModeHueSaturation:
		var errs []error
		if hue, _, err := read(clusters.ColorControlID, clusters.ColorAttrCurrentHue); err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, d.light.SetHue(driver.HueFromMatter(uint8(hue))))
		}
		if sat, _, err := read(clusters.ColorControlID, clusters.ColorAttrCurrentSaturation); err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, d.light.SetSaturation(driver.SaturationFromMatter(uint8(sat))))
		}
		return errors.Join(errs...)
	}

	d.logger.Warn("color mode not handled for defaults", "mode", mode)
	return nil
}
