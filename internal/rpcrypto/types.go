// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rpcrypto

import "github.com/o1298098/remote-play-sub005/internal/model"

// HostType aliases model.HostType so this package does not need to import
// model at every call site that branches on PS4 vs PS5 constants.
type HostType = model.HostType

const (
	HostTypePS4 = model.HostTypePS4
	HostTypePS5 = model.HostTypePS5
)
