// Package host runs the controller as a long-lived process.
//
// It owns every invocation source (the cron tick, MQTT commands, the CLI
// and the HTTP API) and serialises them through Invoke, so one dispatch
// always runs to completion before the next starts. Before each dispatch
// the registry cache is refreshed so handles see readings written since
// the previous tick.
//
// When a broker is configured the host also bridges the registry to MQTT:
// device readings arriving on gridctl/state/<id> are applied to the
// registry, and every device change and diagnostic line is published.
package host
