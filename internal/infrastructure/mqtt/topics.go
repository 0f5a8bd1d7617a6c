package mqtt

import "strings"

// Root is the first level of every gridctl topic.
//
//	gridctl/command/<construct_id>   invocation arguments (in)
//	gridctl/state/<device_id>        device readings from a bridge (in)
//	gridctl/device/<device_id>       retained device snapshots (out)
//	gridctl/echo/<construct_id>      diagnostic lines (out)
//	gridctl/status/<client_id>       retained presence (out)
const Root = "gridctl"

const stateWildcard = Root + "/state/+"

// CommandTopic carries raw invocation arguments for a construct.
func CommandTopic(constructID string) string { return Root + "/command/" + constructID }

// StateTopic carries JSON readings for one device.
func StateTopic(deviceID string) string { return Root + "/state/" + deviceID }

// SnapshotTopic carries the retained JSON snapshot of one device.
func SnapshotTopic(deviceID string) string { return Root + "/device/" + deviceID }

// EchoTopic carries diagnostic lines for a construct.
func EchoTopic(constructID string) string { return Root + "/echo/" + constructID }

// PresenceTopic carries the retained online/offline record of a client.
func PresenceTopic(clientID string) string { return Root + "/status/" + clientID }

// deviceIDFromStateTopic reports the device a state topic belongs to.
func deviceIDFromStateTopic(topic string) (string, bool) {
	id, ok := strings.CutPrefix(topic, Root+"/state/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
