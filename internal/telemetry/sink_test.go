package telemetry

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/mash-endpoint/internal/config"
	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
	mlog "github.com/mash-protocol/mash-endpoint/pkg/log"
	"github.com/mash-protocol/mash-endpoint/pkg/wire"
)

type pointRecorder struct {
	mu     sync.Mutex
	points []*write.Point
}

func (r *pointRecorder) WritePoint(p *write.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = append(r.points, p)
}

func tagMap(p *write.Point) map[string]string {
	m := make(map[string]string)
	for _, t := range p.TagList() {
		m[t.Key] = t.Value
	}
	return m
}

// fieldMap formats values so integer widths do not matter.
func fieldMap(p *write.Point) map[string]string {
	m := make(map[string]string)
	for _, f := range p.FieldList() {
		m[f.Key] = fmt.Sprint(f.Value)
	}
	return m
}

var ts = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestEventPoint(t *testing.T) {
	tests := []struct {
		name   string
		event  mlog.Event
		tags   map[string]string
		fields map[string]string
	}{
		{
			name: "attribute",
			event: mlog.Event{
				Timestamp: ts, NodeID: 0x1A, Endpoint: 1,
				Layer: mlog.LayerModel, Category: mlog.CategoryAttribute,
				Attribute: &mlog.AttributeEvent{Cluster: clusters.OnOffID, Attribute: clusters.OnOffAttrOnOff, Value: true},
			},
			tags: map[string]string{
				"layer": "MODEL", "category": "ATTRIBUTE", "direction": "IN",
				"node": "000000000000001A", "endpoint": "1", "cluster": "on_off",
			},
			fields: map[string]string{"cluster_id": "6", "attribute_id": "0", "value": "true"},
		},
		{
			name: "identify",
			event: mlog.Event{
				Timestamp: ts, Endpoint: 2,
				Layer: mlog.LayerModel, Category: mlog.CategoryIdentify,
				Identify: &mlog.IdentifyEvent{Kind: "EFFECT", Effect: 1, Variant: 0},
			},
			tags: map[string]string{
				"layer": "MODEL", "category": "IDENTIFY", "direction": "IN",
				"endpoint": "2", "kind": "EFFECT",
			},
			fields: map[string]string{"effect": "1", "variant": "0"},
		},
		{
			name: "button",
			event: mlog.Event{
				Timestamp: ts,
				Layer:     mlog.LayerInput, Category: mlog.CategoryButton,
				Button: &mlog.ButtonEvent{Button: "btn0", Press: "short", Count: 3, Action: "on_off toggle"},
			},
			tags: map[string]string{
				"layer": "INPUT", "category": "BUTTON", "direction": "IN",
				"button": "btn0", "press": "short",
			},
			fields: map[string]string{"count": "3", "action": "on_off toggle"},
		},
		{
			name: "error",
			event: mlog.Event{
				Timestamp: ts,
				Layer:     mlog.LayerWire, Category: mlog.CategoryError,
				Error: &mlog.ErrorEventData{Layer: mlog.LayerWire, Message: "decode failed", Context: "inbound request"},
			},
			tags: map[string]string{
				"layer": "WIRE", "category": "ERROR", "direction": "IN", "error_layer": "WIRE",
			},
			fields: map[string]string{"message": "decode failed", "context": "inbound request"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := EventPoint(tt.event)
			require.NotNil(t, p)
			assert.Equal(t, Measurement, p.Name())
			assert.Equal(t, ts, p.Time())
			assert.Equal(t, tt.tags, tagMap(p))
			assert.Equal(t, tt.fields, fieldMap(p))
		})
	}
}

func TestEventPoint_Messages(t *testing.T) {
	req := &wire.Request{MessageID: 7, Operation: wire.OpInvoke, Endpoint: 1, Cluster: clusters.OnOffID, ID: clusters.OnOffCmdToggle}
	p := EventPoint(mlog.RequestEvent(mlog.DirectionOut, 0x1, 0x2, req))
	require.NotNil(t, p)
	tags := tagMap(p)
	assert.Equal(t, "OUT", tags["direction"])
	assert.Equal(t, "REQUEST", tags["type"])
	assert.Equal(t, "on_off", tags["cluster"])
	assert.Equal(t, req.Operation.String(), tags["operation"])
	fields := fieldMap(p)
	assert.Equal(t, "7", fields["message_id"])
	assert.Equal(t, "0000000000000002", fields["peer"])
	assert.Equal(t, "2", fields["id"])

	resp := &wire.Response{MessageID: 7, Status: wire.StatusSuccess}
	p = EventPoint(mlog.ResponseEvent(mlog.DirectionIn, 0x1, 0x2, resp, 3*time.Millisecond))
	require.NotNil(t, p)
	assert.Equal(t, wire.StatusSuccess.String(), tagMap(p)["status"])
	assert.Equal(t, "3", fieldMap(p)["processing_ms"])
}

func TestEventPoint_NoPayload(t *testing.T) {
	assert.Nil(t, EventPoint(mlog.Event{Category: mlog.CategoryMessage}))
}

func TestFieldValue(t *testing.T) {
	assert.Equal(t, int64(200), fieldValue(uint8(200)))
	assert.Equal(t, true, fieldValue(true))
	assert.Equal(t, 1.5, fieldValue(1.5))
	assert.Equal(t, "hue", fieldValue("hue"))
	assert.Equal(t, "[1 2]", fieldValue([]int{1, 2}))
}

func TestSink(t *testing.T) {
	rec := &pointRecorder{}
	s := NewSink(rec)

	s.Log(mlog.Event{Category: mlog.CategoryMessage})
	s.Log(mlog.Event{
		Category: mlog.CategoryButton,
		Button:   &mlog.ButtonEvent{Button: "btn0", Press: "long"},
	})

	require.Len(t, rec.points, 1)
	assert.Equal(t, "long", tagMap(rec.points[0])["press"])
	assert.False(t, rec.points[0].Time().IsZero())
}

func TestConnectDisabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	assert.True(t, errors.Is(err, ErrDisabled))
}

func TestClientNotConnected(t *testing.T) {
	c := &Client{}
	assert.False(t, c.IsConnected())
	assert.NotPanics(t, func() { c.WritePoint(write.NewPoint(Measurement, nil, map[string]any{"v": 1}, ts)) })
	assert.NotPanics(t, c.Flush)
	assert.NoError(t, c.Close())
}
