package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementInference  = "inference"
	MeasurementNodeStatus = "node_status"
)

// WriteResult records one inference result. A zero at means now.
func (c *Client) WriteResult(board, model string, result float64, iteration int, microseconds int64, at time.Time) {
	c.WritePoint(MeasurementInference,
		map[string]string{
			"board": board,
			"model": model,
		},
		map[string]any{
			"result":       result,
			"iteration":    iteration,
			"microseconds": microseconds,
		},
		at,
	)
}

// WriteNodeStatus records an online/offline transition of a node.
func (c *Client) WriteNodeStatus(clientID string, online bool, at time.Time) {
	c.WritePoint(MeasurementNodeStatus,
		map[string]string{"client_id": clientID},
		map[string]any{"online": online},
		at,
	)
}

// WritePoint queues a point with arbitrary tags and fields. Dropped when
// not connected.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any, at time.Time) {
	if !c.IsConnected() {
		return
	}
	if at.IsZero() {
		at = time.Now()
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, at))
}
