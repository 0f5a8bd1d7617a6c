// Package api provides the optional operator HTTP API for gridctl.
//
// It exposes the last invocation, lets an operator invoke commands, lists
// the device registry, and streams diagnostic lines and device changes
// over a WebSocket. The Prometheus handler is mounted at the configured
// metrics path when one is supplied.
//
//	GET  /api/v1/health
//	GET  /api/v1/status
//	POST /api/v1/invoke             {"argument": "move_items"}
//	GET  /api/v1/invocations        ?command=&source=&failed=&limit=&offset=
//	GET  /api/v1/devices            ?construct=&kind=
//	GET  /api/v1/devices/stats
//	GET  /api/v1/devices/{id}
//	PUT  /api/v1/devices/{id}/state a device reading
//	GET  /api/v1/groups/{name}
//	GET  /api/v1/diagnostics        ?since=<seq>
//	GET  /api/v1/system
//	GET  /api/v1/ws                 ?channels=diagnostics,devices
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
