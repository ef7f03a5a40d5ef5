package mqtt

import "fmt"

// TopicPrefix is the root of every iotdemo topic.
const TopicPrefix = "iotdemo"

// Topics provides builders for iotdemo MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.BoardResults("esp32dev") // "iotdemo/esp32dev"
type Topics struct{}

// BoardResults returns the topic a board publishes its inference results to.
//
// Example: iotdemo/esp32dev
func (Topics) BoardResults(board string) string {
	return fmt.Sprintf("%s/%s", TopicPrefix, board)
}

// AllResults returns the wildcard matching the results of every board.
// It does not match status topics, which are one level deeper.
//
// Example: iotdemo/+
func (Topics) AllResults() string {
	return TopicPrefix + "/+"
}

// NodeStatus returns the retained online/offline topic of a client.
//
// Example: iotdemo/status/iotdemo-esp32dev-1a2b3c4d
func (Topics) NodeStatus(clientID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefix, clientID)
}

// AllNodeStatus returns the wildcard matching every node status topic.
//
// Example: iotdemo/status/+
func (Topics) AllNodeStatus() string {
	return TopicPrefix + "/status/+"
}
