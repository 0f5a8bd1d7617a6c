// Package mqtt is gridctl's optional broker link.
//
// When enabled, the host routes two kinds of inbound traffic through it:
// invocation arguments on CommandTopic and device readings from an external
// bridge on StateTopic. Outbound, it publishes retained device snapshots
// after every registry write and each diagnostic line as it is echoed.
//
//	operator / bridge <-> broker <-> gridctl
//
// The client keeps a retained presence record on PresenceTopic (online
// while connected, offline on shutdown, and a broker will for crashes) and
// replays its routes after a reconnect.
//
// Anyone allowed to publish on gridctl/command/# can run commands; use TLS
// and broker ACLs when the broker is not local.
package mqtt
