// Package discovery advertises an endpoint node over mDNS/DNS-SD.
//
// Two service types are used:
//
// # Commissionable Discovery (_mashc._udp)
//
// Advertised while the commissioning window is open.
// Instance name format: MASH-<discriminator>
// TXT records: D (discriminator), CM (commissioning mode), VP
// (vendor+product), DT (primary device type) and DN (device name).
//
// # Operational Discovery (_mash._tcp)
//
// Advertised while the node is running. Instance name is the node ID in
// 16 upper-case hex digits. TXT records: NI (node ID), VP, DN, EP
// (endpoint count) and TP (MQTT topic prefix).
//
// DiscoveryManager owns the commissioning window: it starts the
// commissionable advertisement and withdraws it when the window expires.
package discovery
