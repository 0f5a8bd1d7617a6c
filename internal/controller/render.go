package controller

import (
	"fmt"
	"strings"
)

// RenderStatus formats the status panel text: the target line followed by
// one line per metric with one decimal place. There is no trailing newline.
func RenderStatus(targetName string, online bool, metrics []AggregatedMetric) string {
	status := "Offline"
	if online {
		status = "Online"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s is %s", targetName, status)
	for _, m := range metrics {
		fmt.Fprintf(&b, "\n%s: %.1f%%", m.Class.Label(), m.Percent)
	}
	return b.String()
}
