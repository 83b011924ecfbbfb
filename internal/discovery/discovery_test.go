// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestScanYieldsEmptySetOnTimeout exercises spec.md §8's boundary behavior:
// discovery yields an empty set, not an error, if no replies arrive.
func TestScanYieldsEmptySetOnTimeout(t *testing.T) {
	p := New(19302, 50*time.Millisecond) // unusual port: nothing replies
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	consoles, err := p.Scan(ctx)
	require.NoError(t, err)
	require.Empty(t, consoles)
}
