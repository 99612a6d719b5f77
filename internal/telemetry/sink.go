package telemetry

import (
	"fmt"
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
	mlog "github.com/mash-protocol/mash-endpoint/pkg/log"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// Measurement is the InfluxDB measurement every event is written to.
const Measurement = "mash_events"

// PointWriter accepts points for asynchronous delivery. *Client and
// api.WriteAPI implement it.
type PointWriter interface {
	WritePoint(point *write.Point)
}

// WritePoint queues a point. Points written while disconnected are dropped.
func (c *Client) WritePoint(point *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(point)
}

// Sink writes protocol events as points.
type Sink struct {
	w PointWriter
}

var _ mlog.Logger = (*Sink)(nil)

// NewSink creates a sink over w.
func NewSink(w PointWriter) *Sink {
	return &Sink{w: w}
}

// Log implements mlog.Logger.
func (s *Sink) Log(e mlog.Event) {
	if p := EventPoint(e); p != nil {
		s.w.WritePoint(p)
	}
}

// EventPoint converts an event to a point. It returns nil for events
// without a payload.
func EventPoint(e mlog.Event) *write.Point {
	tags := map[string]string{
		"layer":     e.Layer.String(),
		"category":  e.Category.String(),
		"direction": e.Direction.String(),
	}
	if e.NodeID != 0 {
		tags["node"] = fmt.Sprintf("%016X", e.NodeID)
	}
	if e.Endpoint != 0 {
		tags["endpoint"] = strconv.Itoa(int(e.Endpoint))
	}

	fields := make(map[string]any)
	switch {
	case e.Attribute != nil:
		tags["cluster"] = clusters.ClusterName(e.Attribute.Cluster)
		fields["cluster_id"] = e.Attribute.Cluster
		fields["attribute_id"] = e.Attribute.Attribute
		if e.Attribute.Value != nil {
			fields["value"] = fieldValue(e.Attribute.Value)
		}
	case e.Identify != nil:
		tags["kind"] = e.Identify.Kind
		fields["effect"] = e.Identify.Effect
		fields["variant"] = e.Identify.Variant
	case e.Button != nil:
		tags["button"] = e.Button.Button
		tags["press"] = e.Button.Press
		fields["count"] = e.Button.Count
		fields["action"] = e.Button.Action
	case e.Message != nil:
		messageFields(tags, fields, e.Message)
	case e.Error != nil:
		tags["error_layer"] = e.Error.Layer.String()
		fields["message"] = e.Error.Message
		if e.Error.Context != "" {
			fields["context"] = e.Error.Context
		}
	default:
		return nil
	}

	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return write.NewPoint(Measurement, tags, fields, ts)
}

func messageFields(tags map[string]string, fields map[string]any, m *mlog.MessageEvent) {
	tags["type"] = m.Type.String()
	fields["message_id"] = m.MessageID
	if m.Peer != 0 {
		fields["peer"] = fmt.Sprintf("%016X", m.Peer)
	}
	if m.Group != 0 {
		fields["group"] = m.Group
	}
	if m.Operation != nil {
		tags["operation"] = m.Operation.String()
	}
	if m.Cluster != nil {
		tags["cluster"] = clusters.ClusterName(*m.Cluster)
	}
	if m.ID != nil {
		fields["id"] = *m.ID
	}
	if m.Status != nil {
		tags["status"] = m.Status.String()
	}
	if m.ProcessingTime != nil {
		fields["processing_ms"] = float64(*m.ProcessingTime) / float64(time.Millisecond)
	}
}

// fieldValue keeps numbers, booleans and strings and formats anything
// else.
func fieldValue(v any) any {
	switch v := v.(type) {
	case bool, string, float32, float64:
		return v
	}
	if n, ok := model.ToInt64(v); ok {
		return n
	}
	return fmt.Sprint(v)
}
