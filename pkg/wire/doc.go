// Package wire defines the CBOR message types exchanged between endpoints.
//
// Messages use CBOR (RFC 8949) with integer keys and canonical encoding so
// that the same request always encodes to the same bytes.
//
// # Message Types
//
//   - Request: Read, Write or Invoke addressed to an attribute or command path
//   - Response: status plus the read value or command response fields
//
// Command fields travel as a map with string keys. Integer values decode as
// uint64 or int64; the data model normalizes them to the attribute type.
package wire
