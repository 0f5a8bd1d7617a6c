// Package influxdb records one construct's controller history in InfluxDB.
//
// Connect returns a Client scoped to a construct ID; every point it writes
// carries a construct_id tag so several controllers can share a bucket.
// Three measurements are written:
//   - resource_level: capacity, current and percent per resource class,
//     once per status update
//   - transfer: one point per attempted consolidation move
//   - invocation: one point per dispatched command
//
// *Client implements the controller's metric sink and can be passed
// directly (or inside a controller.MultiSink) as Options.Metrics.
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Construct.ID, log)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// Writes are batched and never block the caller. Failed batches are
// reported to the Logger given to Connect.
package influxdb
