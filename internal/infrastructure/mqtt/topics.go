package mqtt

import "github.com/nerrad567/gray-logic-linewriter/internal/lineprotocol"

// Topics builds the line writer's MQTT topics for one site.
//
//	topics := mqtt.Topics{Prefix: "graylogic/telemetry", Site: "site-001"}
//	topics.Lines(lineprotocol.Milliseconds)
//	// Returns: "graylogic/telemetry/site-001/lines/ms"
type Topics struct {
	Prefix string
	Site   string
}

func (t Topics) base() string {
	return t.Prefix + "/" + t.Site
}

// Lines returns the topic rendered batches are published to. The last level
// names the timestamp unit so subscribers can decode without guessing.
func (t Topics) Lines(p lineprotocol.Precision) string {
	return t.base() + "/lines/" + p.String()
}

// AllLines matches every Lines topic for the site.
func (t Topics) AllLines() string {
	return t.base() + "/lines/+"
}

// Write returns the topic JSON points are accepted on.
func (t Topics) Write() string {
	return t.base() + "/write"
}

// Status returns the retained online/offline status topic.
func (t Topics) Status() string {
	return t.base() + "/status"
}
