// Package model implements the node data model used by mash-endpoint.
//
// # Node Model Hierarchy
//
// The model follows the Matter layout:
//
//	Node > Endpoint > Cluster > Attribute / Command
//
// A Node is one physical device. Endpoint 0 is the root endpoint and is
// created automatically. Application endpoints (lights, switches) are added
// by the endpoint builder at boot:
//
//	Node (0x1234)
//	├── Endpoint 0 (root)
//	│   └── Descriptor
//	├── Endpoint 1 (dimmable_light)
//	│   ├── Descriptor
//	│   ├── Identify
//	│   ├── Groups
//	│   ├── ScenesManagement
//	│   ├── OnOff
//	│   └── LevelControl
//	└── Endpoint 2 (on_off_switch)
//	    ├── Descriptor
//	    ├── Identify
//	    ├── OnOff (client)
//	    └── Binding
//
// # Addressing
//
// Attributes are addressed by AttributePath (endpoint, cluster, attribute)
// and commands by CommandPath (endpoint, cluster, command).
//
// # Attribute Updates
//
// Every committed attribute change runs through the node's AttributeCallback
// twice: once with PhasePreUpdate before the value is stored and once with
// PhasePostUpdate after. A pre-update error is logged and does not block the
// commit. Cluster subscribers are notified after the post-update callback.
//
// # Stack Lock
//
// The node owns a single StackLock. UpdateAttribute and Invoke take it;
// code that already holds it (command handlers, the interaction server)
// uses the Locked variants.
package model
