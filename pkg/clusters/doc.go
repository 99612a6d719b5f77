// Package clusters provides the standard clusters a light or switch
// endpoint is built from: Descriptor, Identify, Groups, ScenesManagement,
// OnOff, LevelControl, ColorControl and Binding.
//
// Constructors create the mandatory attributes. Optional features are added
// with the Add*Feature helpers so endpoint assembly can enable exactly the
// features the resolved configuration asks for. Command handlers run with
// the node's stack lock held and commit values with Cluster.SetAttribute.
package clusters
