package lz77

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, data []byte) {
	t.Helper()
	got, err := Decompress(Compress(data))
	require.NoError(t, err)
	if len(data) == 0 {
		assert.Empty(t, got)
		return
	}
	assert.Equal(t, data, got)
}

func TestRoundTrip_Empty(t *testing.T) {
	roundTrip(t, nil)
}

func TestRoundTrip_Short(t *testing.T) {
	roundTrip(t, []byte("ab"))
}

func TestRoundTrip_Repetitive(t *testing.T) {
	data := bytes.Repeat([]byte("<node attr=\"0\"/>"), 200)
	compressed := Compress(data)
	assert.Less(t, len(compressed), len(data), "repetitive input should shrink")
	got, err := Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestRoundTrip_SingleByteRun(t *testing.T) {
	// Overlapping references: a long run of one byte.
	roundTrip(t, bytes.Repeat([]byte{0x41}, 5000))
}

func TestRoundTrip_Random(t *testing.T) {
	data := make([]byte, 4096)
	_, err := rand.Read(data)
	require.NoError(t, err)
	roundTrip(t, data)
}

func TestRoundTrip_XMLDocument(t *testing.T) {
	roundTrip(t, []byte(`<call model="K32:J:B:A:2011033000" srcid="00010203040506070809">`+
		`<cardmng cardid="E0040100DE52896C" cardtype="1" method="inquire" update="1"/></call>`))
}

func TestDecompress_Truncated(t *testing.T) {
	data := Compress([]byte("some reasonable payload with words words words"))
	for _, cut := range []int{0, 1, len(data) - 1} {
		_, err := Decompress(data[:cut])
		assert.Error(t, err, "cut at %d", cut)
	}
}

func TestDecompress_BadReference(t *testing.T) {
	// Group of references only; first points 1 byte back with no output yet.
	_, err := Decompress([]byte{0x00, 0x00, 0x10})
	assert.Error(t, err)
}
