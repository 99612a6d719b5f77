// Package mqtt carries interaction messages between nodes over an MQTT
// broker.
//
// Client wraps paho.mqtt.golang with connection state, subscription
// restoration on reconnect and publish validation. Transport sits on top of
// a Client: it is the interaction.RequestSender used for bound commands and
// it feeds inbound requests to an interaction.Server and inbound responses
// to an interaction.Client.
//
// # Topics
//
//	<prefix>/node/<nodeID>/request    unicast requests to a node
//	<prefix>/node/<nodeID>/response   responses for requests the node sent
//	<prefix>/node/<nodeID>/status     retained online/offline status (LWT)
//	<prefix>/group/<groupID>/request  group-addressed invokes
//
// Node IDs are 16 upper-case hex digits; group IDs are decimal. Payloads
// are CBOR messages from package wire.
package mqtt
