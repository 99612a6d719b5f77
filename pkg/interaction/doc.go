// Package interaction carries Read, Write and Invoke requests between nodes.
//
// # Server Usage
//
// The Server handles incoming requests against a model.Node. Writes and
// invokes take the node's stack lock with a bounded wait and answer BUSY
// when it cannot be acquired:
//
//	server := interaction.NewServer(node)
//	server.SetLockTimeout(2 * time.Second)
//	resp := server.HandleRequest(ctx, req)
//
// Group-addressed invokes run on every endpoint that is a member of the
// group and produce no response.
//
// # Client Usage
//
// The Client correlates requests and responses by message ID over any
// RequestSender (the MQTT transport in production):
//
//	client := interaction.NewClient(sender, localNodeID)
//	fields, err := client.Invoke(ctx, peer, model.CommandPath{...}, nil)
//
// BindingSender adapts a Client to binding.Sender. Unicast invokes are sent
// synchronously and their responses are logged from a separate goroutine,
// so callers holding the stack lock never wait on a peer.
package interaction
