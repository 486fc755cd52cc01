package flushio

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriteFlusher(t *testing.T) {
	var buf bytes.Buffer
	wf := NewWriteFlusher(&buf)
	io.WriteString(wf, "direct")
	assert.Equal(t, "direct", buf.String(), "buffers are written through")

	assert.Equal(t, Discard, NewWriteFlusher(nil))
	assert.Equal(t, Discard, NewWriteFlusher(io.Discard))
	assert.Equal(t, wf, NewWriteFlusher(wf))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	fw := NewWriteFlusher(f)
	io.WriteString(fw, "held")
	st, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(0), st.Size(), "files are buffered")
	require.NoError(t, fw.Flush())
	st, err = f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(4), st.Size())
}

func TestWriteFlushers(t *testing.T) {
	var a, b strings.Builder
	wa, wb := NewWriteFlusher(&a), NewWriteFlusher(&b)

	assert.Equal(t, Discard, WriteFlushers())
	assert.Equal(t, wa, WriteFlushers(nil, wa))

	both := WriteFlushers(wa, nil, wb)
	nested := WriteFlushers(both, Discard)
	assert.Len(t, nested, 3)

	io.WriteString(both, "x")
	assert.NoError(t, both.Flush())
	assert.Equal(t, "x", a.String())
	assert.Equal(t, "x", b.String())
}
