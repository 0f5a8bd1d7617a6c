// Package controller is the monitoring-and-control loop of gridctl.
//
// One Controller is built per process. At construction it resolves the
// display panel, the monitored target and the alert light group, echoing a
// warning for each one that is missing. Each invocation then dispatches a
// single command:
//
//   - update_status (also the blank argument): aggregate battery, oxygen and
//     hydrogen groups into percentages, render them with the target's state
//     onto the display and mirror that state onto the alert lights
//   - toggle_alert_lights: flip the light group using its first member as the
//     reference state
//   - move_items [destination]: consolidate refined materials from every
//     storage block of the local construct into a cargo container
//
// Groups other than the alert lights are resolved again on every invocation
// since blocks come and go between ticks. Every failure below the dispatch
// boundary degrades to "skip and report"; nothing here panics or stops the
// host.
package controller
