package framing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteSection("alpha", []byte("hello")))
	require.NoError(t, w.WriteSection("beta", []byte("world!!")))
	require.NoError(t, w.Close())

	reader := bytes.NewReader(buf.Bytes())
	fr, err := NewReader(reader, int64(buf.Len()))
	require.NoError(t, err)

	require.True(t, fr.HasSection("alpha"))
	require.True(t, fr.HasSection("beta"))
	require.False(t, fr.HasSection("missing"))

	payload, err := fr.Section("alpha")
	require.NoError(t, err)
	require.Equal(t, "hello", string(payload))

	payload, err = fr.Section("beta")
	require.NoError(t, err)
	require.Equal(t, "world!!", string(payload))
}

func TestReaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, FooterSize)
	copy(buf, "XXXX")
	_, err := NewReader(bytes.NewReader(buf), int64(len(buf)))
	require.Error(t, err)
}

func TestReaderRejectsTooSmall(t *testing.T) {
	buf := make([]byte, 10)
	_, err := NewReader(bytes.NewReader(buf), int64(len(buf)))
	require.Error(t, err)
}
