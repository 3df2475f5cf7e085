package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// The Write* helpers are fire and forget: points are dropped silently
// when the client is disconnected, and otherwise queue into the batch
// without blocking the request path that called them.

// WriteTemplateUpdate records one template write in the
// template_updates measurement. Source distinguishes REST updates from
// realtime ones.
func (c *Client) WriteTemplateUpdate(templateID, actorID, source string, payloadBytes int) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(
		"template_updates",
		map[string]string{"template_id": templateID, "source": source},
		map[string]any{"actor_id": actorID, "payload_bytes": payloadBytes},
		time.Now(),
	))
}

// WritePresence records a realtime session opening (online) or closing
// in the presence measurement.
func (c *Client) WritePresence(userID string, online bool) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(
		"presence",
		map[string]string{"user_id": userID},
		map[string]any{"online": online},
		time.Now(),
	))
}

// WriteHTTPRequest records one API request in the http_requests
// measurement. Route must be the matched pattern, for example
// /api/templates/{template_id}, so the tag stays low cardinality.
func (c *Client) WriteHTTPRequest(route, method string, status int, durationMs float64) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(
		"http_requests",
		map[string]string{"route": route, "method": method},
		map[string]any{"status": status, "duration_ms": durationMs},
		time.Now(),
	))
}

// WritePoint writes an arbitrary measurement stamped with the current
// time. Tags index the point and must stay low cardinality; fields
// carry the values.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime is WritePoint with an explicit timestamp, for data
// recorded after the fact.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
