package model

import "fmt"

// EndpointRoot is the root endpoint present on every node.
const EndpointRoot uint16 = 0

// AttributePath addresses one attribute on a node.
type AttributePath struct {
	Endpoint  uint16 `cbor:"1,keyasint" json:"endpoint"`
	Cluster   uint32 `cbor:"2,keyasint" json:"cluster"`
	Attribute uint32 `cbor:"3,keyasint" json:"attribute"`
}

// String returns the path in "ep/0xCLUSTER/0xATTR" form.
func (p AttributePath) String() string {
	return fmt.Sprintf("%d/0x%04X/0x%04X", p.Endpoint, p.Cluster, p.Attribute)
}

// CommandPath addresses one command on a node.
type CommandPath struct {
	Endpoint uint16 `cbor:"1,keyasint" json:"endpoint"`
	Cluster  uint32 `cbor:"2,keyasint" json:"cluster"`
	Command  uint32 `cbor:"3,keyasint" json:"command"`
}

// String returns the path in "ep/0xCLUSTER/0xCMD" form.
func (p CommandPath) String() string {
	return fmt.Sprintf("%d/0x%04X/0x%02X", p.Endpoint, p.Cluster, p.Command)
}
