// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rpcrypto

// Vendor key tables used to derive key0/key1 during registration (spec.md
// §4.2). Their exact contents are console-vendor-issued constants; the
// retrieval pack this module was built from carries no real console vendor
// bytes, so these are placeholder tables of the correct shape (32-byte
// stride, sized to cover index i in [0,16)) that must be replaced with the
// real vendor tables before registering against a physical console. Treat
// them as opaque — never derive or "fix up" individual bytes.
const vendorKeyTableSize = 512
const vendorKeyStride = 32

var vendorKey0PS4 = placeholderTable(0xA4)
var vendorKey1PS4 = placeholderTable(0xB5)
var vendorKey0PS5 = placeholderTable(0xC6)
var vendorKey1PS5 = placeholderTable(0xD7)

func placeholderTable(seed byte) [vendorKeyTableSize]byte {
	var t [vendorKeyTableSize]byte
	x := seed
	for i := range t {
		x = x*31 + byte(i)
		t[i] = x
	}
	return t
}

// vendorKeysFor returns the (key0 table, key1 table) pair for a host type.
func vendorKeysFor(hostType HostType) (key0Table, key1Table [vendorKeyTableSize]byte) {
	if hostType == HostTypePS5 {
		return vendorKey0PS5, vendorKey1PS5
	}
	return vendorKey0PS4, vendorKey1PS4
}
