// Package mqttbridge forwards telemetry events to an MQTT broker.
//
// The bridge subscribes to the in-process hub and republishes every event as
// JSON on <topicRoot>/events/<type> at QoS 0. Broker outages are absorbed by
// autopaho's reconnect loop; events that cannot be published are dropped.
package mqttbridge
