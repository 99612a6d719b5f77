// Package commissioning derives the commissioning credentials of an
// endpoint and formats them for onboarding.
//
// # Credentials
//
// The discriminator and setup code are derived from the device MAC address
// so that a device keeps the same credentials across reflashes:
//
//	discriminator = ((mac[4] << 8) | mac[5]) & 0xFFF
//	setup code    = (BE32(mac[0:4]) % 99999998) + 1
//
// Reserved discriminators (0x000, 0xFFE, 0xFFF) fall back to 0xF00 and
// trivial setup codes (repeated digits, 12345678, 87654321) fall back to
// 20202021.
//
// # Payloads
//
// The QR payload has the form
//
//	MASH:<version>:<discriminator>:<setupcode>:<vendorid>:<productid>
//
// Example: MASH:1:1234:12345679:0xFFF1:0x8000
//
// The 11-digit manual pairing code packs the upper four discriminator bits
// and the setup code into ten digits followed by a Verhoeff check digit.
package commissioning
