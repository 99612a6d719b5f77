package clusters

import (
	"context"
	"sync"
	"time"

	"github.com/mash-protocol/mash-endpoint/pkg/duration"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// IdentifyHost is the node surface the Identify cluster needs.
// *model.Node implements it.
type IdentifyHost interface {
	UpdateAttribute(ctx context.Context, path model.AttributePath, value any) error
	Identify(kind model.IdentifyKind, endpoint uint16, effect, variant uint8) error
}

// IdentifyConfig configures an Identify cluster.
type IdentifyConfig struct {
	IdentifyTime uint16
	IdentifyType uint8

	// Tick is the length of one IdentifyTime unit. Zero means one second.
	Tick time.Duration
}

// Identify is the Identify cluster server. Writing a non-zero IdentifyTime
// starts an identify session and a countdown; writing zero or reaching the
// end of the countdown stops it.
type Identify struct {
	cluster *model.Cluster
	host    IdentifyHost
	timers  *duration.Manager
	tick    time.Duration

	mu     sync.Mutex
	active bool
}

// NewIdentify creates an Identify cluster. timers is shared by every
// Identify instance of a node. cfg.IdentifyTime is the stored initial value;
// it does not start a session.
func NewIdentify(cfg IdentifyConfig, host IdentifyHost, timers *duration.Manager) *Identify {
	tick := cfg.Tick
	if tick <= 0 {
		tick = time.Second
	}

	c := model.NewCluster(IdentifyID, "Identify", 5)
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:      IdentifyAttrIdentifyTime,
		Name:    "IdentifyTime",
		Type:    model.DataTypeUint16,
		Access:  model.AccessReadWrite,
		Default: cfg.IdentifyTime,
	}))
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:      IdentifyAttrIdentifyType,
		Name:    "IdentifyType",
		Type:    model.DataTypeEnum8,
		Access:  model.AccessReadOnly,
		Default: cfg.IdentifyType,
	}))

	id := &Identify{
		cluster: c,
		host:    host,
		timers:  timers,
		tick:    tick,
	}

	c.AddCommand(model.NewCommand(&model.CommandMetadata{
		ID:   IdentifyCmdIdentify,
		Name: "Identify",
		Parameters: []model.ParameterMetadata{
			{Name: "identifyTime", Type: model.DataTypeUint16, Required: true},
		},
	}, id.handleIdentify))

	c.SetReadHook(id.readRemaining)
	c.Subscribe(id)
	return id
}

// Cluster returns the underlying cluster.
func (id *Identify) Cluster() *model.Cluster {
	return id.cluster
}

// Active reports whether an identify session is running.
func (id *Identify) Active() bool {
	id.mu.Lock()
	defer id.mu.Unlock()
	return id.active
}

// AddTriggerEffectCommand adds the TriggerEffect command.
func (id *Identify) AddTriggerEffectCommand() {
	id.cluster.AddCommand(model.NewCommand(&model.CommandMetadata{
		ID:   IdentifyCmdTriggerEffect,
		Name: "TriggerEffect",
		Parameters: []model.ParameterMetadata{
			{Name: "effectIdentifier", Type: model.DataTypeEnum8, Required: true},
			{Name: "effectVariant", Type: model.DataTypeEnum8},
		},
	}, id.handleTriggerEffect))
}

func (id *Identify) handleIdentify(ctx context.Context, params map[string]any) (map[string]any, error) {
	t, _ := model.ParamInt(params, "identifyTime")
	if t < 0 || t > 0xFFFF {
		return nil, model.ErrInvalidParameters
	}
	return nil, id.cluster.SetAttribute(IdentifyAttrIdentifyTime, uint16(t))
}

func (id *Identify) handleTriggerEffect(ctx context.Context, params map[string]any) (map[string]any, error) {
	effect, _ := model.ParamInt(params, "effectIdentifier")
	variant, _ := model.ParamInt(params, "effectVariant")
	ep := id.endpointID()
	return nil, id.host.Identify(model.IdentifyEffect, ep, uint8(effect), uint8(variant))
}

// OnAttributeChanged starts or stops the identify session.
func (id *Identify) OnAttributeChanged(clusterID, attrID uint32, value any) {
	if attrID != IdentifyAttrIdentifyTime {
		return
	}
	secs, _ := model.ToInt64(value)
	ep := id.endpointID()
	key := duration.Key{Endpoint: ep, Cluster: IdentifyID}

	if secs > 0 {
		_ = id.timers.SetTimer(key, time.Duration(secs)*id.tick, id.expire)

		id.mu.Lock()
		starting := !id.active
		id.active = true
		id.mu.Unlock()

		if starting {
			_ = id.host.Identify(model.IdentifyStart, ep, 0, 0)
		}
		return
	}

	_ = id.timers.CancelTimer(key)

	id.mu.Lock()
	stopping := id.active
	id.active = false
	id.mu.Unlock()

	if stopping {
		_ = id.host.Identify(model.IdentifyStop, ep, 0, 0)
	}
}

func (id *Identify) expire() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	path := model.AttributePath{
		Endpoint:  id.endpointID(),
		Cluster:   IdentifyID,
		Attribute: IdentifyAttrIdentifyTime,
	}
	_ = id.host.UpdateAttribute(ctx, path, uint16(0))
}

func (id *Identify) readRemaining(ctx context.Context, attrID uint32) (any, bool) {
	if attrID != IdentifyAttrIdentifyTime || !id.Active() {
		return nil, false
	}
	remaining := id.timers.Remaining(duration.Key{Endpoint: id.endpointID(), Cluster: IdentifyID})
	units := (remaining + id.tick - 1) / id.tick
	return uint16(units), true
}

func (id *Identify) endpointID() uint16 {
	if ep := id.cluster.Endpoint(); ep != nil {
		return ep.ID()
	}
	return 0
}
