package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	measurementResource   = "resource_level"
	measurementTransfer   = "transfer"
	measurementInvocation = "invocation"

	tagConstruct = "construct_id"
)

// RecordResource writes one aggregated resource class.
func (c *Client) RecordResource(class string, capacity, current, percent float64) {
	c.record(measurementResource,
		map[string]string{"class": class},
		map[string]any{"capacity": capacity, "current": current, "percent": percent})
}

// RecordTransfer writes one attempted consolidation move.
func (c *Client) RecordTransfer(source, subtype string, success bool) {
	c.record(measurementTransfer,
		map[string]string{"source": source, "subtype": subtype},
		map[string]any{"success": success})
}

// RecordCommand writes one dispatched invocation.
func (c *Client) RecordCommand(command string, success bool) {
	c.record(measurementInvocation,
		map[string]string{"command": command},
		map[string]any{"success": success})
}

func (c *Client) record(measurement string, tags map[string]string, fields map[string]any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.points == nil {
		return
	}
	c.points.WritePoint(newPoint(c.constructID, measurement, tags, fields, c.now()))
}

// newPoint builds a point carrying the construct tag. The construct tag
// always wins over a caller tag of the same name.
func newPoint(constructID, measurement string, tags map[string]string, fields map[string]any, ts time.Time) *write.Point {
	all := make(map[string]string, len(tags)+1)
	for k, v := range tags {
		all[k] = v
	}
	all[tagConstruct] = constructID
	return write.NewPoint(measurement, all, fields, ts)
}
