// Package binding sends cluster commands to the peers listed in a local
// endpoint's Binding cluster.
//
// A switch endpoint does not know who it controls. Client.ClusterUpdate
// walks the binding table of the local endpoint, keeps the targets that
// apply to the request's cluster and hands one request per target to a
// Sender. Unicast targets address (node, endpoint); group targets address a
// group ID.
//
// Callers hold the node's stack lock while calling ClusterUpdate. Senders
// must not block on the peer's response.
package binding
