package libio

import (
	"bytes"
	"testing"
	"testing/fstest"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lz4Compress(t *testing.T, data []byte) []byte {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDownloaderCallbacksRunOnPoll(t *testing.T) {
	fsys := fstest.MapFS{
		"a.txt": {Data: []byte("alpha")},
		"b.txt": {Data: []byte("beta")},
	}
	d := NewDownloader(fsys, DownloaderOptions{MaxConcurrent: 1})

	got := map[string][]byte{}
	d.Fetch("a.txt", KindText, func(data []byte) { got["a"] = data })
	d.Fetch("./b.txt", KindText, func(data []byte) { got["b"] = data })
	d.Fetch("missing.txt", KindText, func(data []byte) { got["missing"] = data })

	d.wg.Wait()
	assert.Empty(t, got, "callbacks must wait for Poll")
	assert.Equal(t, 0, d.Outstanding())

	assert.Equal(t, 3, d.Poll())
	assert.Equal(t, []byte("alpha"), got["a"])
	assert.Equal(t, []byte("beta"), got["b"])
	assert.Contains(t, got, "missing")
	assert.Nil(t, got["missing"])
}

func TestDownloaderFlushFollowsChainedFetches(t *testing.T) {
	fsys := fstest.MapFS{
		"first":  {Data: []byte("second")},
		"second": {Data: []byte("done")},
	}
	d := NewDownloader(fsys, DownloaderOptions{})

	var result []byte
	d.Fetch("first", KindBinary, func(next []byte) {
		d.Fetch(string(next), KindBinary, func(data []byte) { result = data })
	})
	d.Flush()
	assert.Equal(t, []byte("done"), result)
}

func TestDownloaderDecompressesLz4(t *testing.T) {
	payload := bytes.Repeat([]byte("radiance"), 100)
	fsys := fstest.MapFS{"sky.hdr.lz4": {Data: lz4Compress(t, payload)}}
	d := NewDownloader(fsys, DownloaderOptions{})

	assert.Equal(t, payload, d.Load("sky.hdr.lz4", KindBinary))
}

func TestDownloaderRejectsNonImages(t *testing.T) {
	fsys := fstest.MapFS{"face.png": {Data: []byte("definitely not a png")}}
	d := NewDownloader(fsys, DownloaderOptions{})

	assert.Nil(t, d.Load("face.png", KindImage))
	assert.NotNil(t, d.Load("face.png", KindBinary))
}
