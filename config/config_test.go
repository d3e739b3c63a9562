// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verificatum/vcr/vcrerr"
)

func TestFromMapAppliesDefaults(t *testing.T) {
	p, err := FromMap(map[string]string{
		"sid":    "session1",
		"party":  "1",
		"nopart": "3",
	})
	require.NoError(t, err)
	require.Equal(t, "session1", p.Sid)
	require.Equal(t, 1, p.Party)
	require.Equal(t, 3, p.Nopart)
	require.Equal(t, DefaultDirectory, p.Directory)
	require.Equal(t, DefaultRandomness, p.Randomness)
	require.Equal(t, DefaultCertainty, p.Certainty)
	require.Equal(t, DefaultStatdist, p.Statdist)
	require.Equal(t, DefaultBullboard, p.Bullboard)
	require.EqualValues(t, DefaultMaxWaitMillis, p.MaxWaitMillis)
	require.EqualValues(t, DefaultMaxByteLength, p.MaxByteLength)
	require.Equal(t, DefaultMaxRecursionDepth, p.MaxRecursionDepth)
}

func TestFromMapMissingSidIsConfigError(t *testing.T) {
	_, err := FromMap(map[string]string{"party": "1", "nopart": "3"})
	require.ErrorIs(t, err, vcrerr.ErrConfig)
}

func TestFromMapMissingPartyIsConfigError(t *testing.T) {
	_, err := FromMap(map[string]string{"sid": "s", "nopart": "3"})
	require.ErrorIs(t, err, vcrerr.ErrConfig)
}

func TestFromMapOutOfRangeNopartIsConfigError(t *testing.T) {
	_, err := FromMap(map[string]string{"sid": "s", "party": "1", "nopart": "26"})
	require.ErrorIs(t, err, vcrerr.ErrConfig)
}

func TestFromMapPartyOutOfRangeForNopart(t *testing.T) {
	_, err := FromMap(map[string]string{"sid": "s", "party": "4", "nopart": "3"})
	require.ErrorIs(t, err, vcrerr.ErrConfig)
}

func TestFromMapUnparseableIntIsConfigError(t *testing.T) {
	_, err := FromMap(map[string]string{"sid": "s", "party": "1", "nopart": "three"})
	require.ErrorIs(t, err, vcrerr.ErrConfig)
}

func TestFromMapUnknownRecognizedPrefixFallsThroughToTransportParams(t *testing.T) {
	p, err := FromMap(map[string]string{
		"sid": "s", "party": "1", "nopart": "1",
		"peer.1": "http://127.0.0.1:9000",
	})
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:9000", p.TransportParams["peer.1"])
}

func TestFromMapOverridesCaps(t *testing.T) {
	p, err := FromMap(map[string]string{
		"sid": "s", "party": "1", "nopart": "1",
		"max_wait_millis": "5000", "max_byte_length": "1024", "max_recursion_depth": "4",
	})
	require.NoError(t, err)
	require.EqualValues(t, 5000, p.MaxWaitMillis)
	require.EqualValues(t, 1024, p.MaxByteLength)
	require.Equal(t, 4, p.MaxRecursionDepth)
}

func TestBuilderBuildsMinimalValidConfig(t *testing.T) {
	p, err := NewBuilder().Parties(2, 3).Set(KeySid, "mysession").Build()
	require.NoError(t, err)
	require.Equal(t, 2, p.Party)
	require.Equal(t, 3, p.Nopart)
	require.Equal(t, "mysession", p.Sid)
}
