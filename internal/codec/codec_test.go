package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlowe/jetindex/internal/column"
)

func TestCharCodeTableSeedValues(t *testing.T) {
	tbl := Default()

	code, ok := tbl.Code('A')
	require.True(t, ok)
	assert.Equal(t, byte(0x4A), code, "'A' must code to 0x4A")

	code, ok = tbl.Code('_')
	require.True(t, ok)
	assert.Equal(t, byte(3), code)
	assert.True(t, tbl.IsPrefixed(code))
}

func TestEncodeStringSeeds(t *testing.T) {
	tbl := Default()

	// NAME = "A_": 'A' (not prefixed) then prefix+code for '_'. The
	// whole-string anomaly does not trigger because the string isn't
	// exactly "_".
	got, err := EncodeString(tbl, "A_")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x4A, 0x2B, 0x03}, got)

	// NAME = "_" alone triggers the anomaly: an extra literal 3 after
	// the prefixed code.
	got, err = EncodeString(tbl, "_")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x2B, 0x03, 0x03}, got)
}

func TestEncodeDecodeStringRoundTrip(t *testing.T) {
	tbl := Default()

	cases := []string{"HELLO", "A_", "U S A", "123#$%&", "Z"}
	for _, s := range cases {
		encoded, err := EncodeString(tbl, s)
		require.NoError(t, err)
		decoded, err := DecodeString(tbl, encoded)
		require.NoError(t, err)
		assert.Equal(t, s, decoded, "round trip for %q", s)
	}
}

func TestEncodeStringUnmappedCharacter(t *testing.T) {
	_, err := EncodeString(Default(), "héllo")
	require.Error(t, err)
}

func TestIntegerBiasRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 2147483647, -2147483648, 42} {
		encoded := EncodeIntegerBias(v, 4)
		decoded := DecodeIntegerBias(encoded, 4)
		assert.Equal(t, v, decoded)
	}
}

func TestIntegerBiasZeroMatchesSeed(t *testing.T) {
	// Seed #2: ID=0 serializes to 0x80000000.
	assert.Equal(t, uint64(0x80000000), EncodeIntegerBias(0, 4))
}

func TestEncodeDecodeFixedValueInt(t *testing.T) {
	col := column.New(0, "ID", column.INT)
	raw, err := EncodeFixedValue(col, int64(-5))
	require.NoError(t, err)
	require.Len(t, raw, 4)

	v, err := DecodeFixedValue(col, raw)
	require.NoError(t, err)
	assert.Equal(t, int64(-5), v)
}

func TestEncodeDecodeFixedValueGUID(t *testing.T) {
	col := column.New(0, "G", column.GUID)
	raw, err := EncodeFixedValue(col, "6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	require.NoError(t, err)
	require.Len(t, raw, 16)

	v, err := DecodeFixedValue(col, raw)
	require.NoError(t, err)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", v.(interface{ String() string }).String())
}
