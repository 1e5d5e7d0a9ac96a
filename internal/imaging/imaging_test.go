package imaging

import (
	"bytes"
	"image"
	"testing"

	"farmlink/internal/testutil"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess_DownscalesLargeImages(t *testing.T) {
	res, err := Process(testutil.PNG(t, 3200, 800), Options{})
	require.NoError(t, err)
	assert.Equal(t, ContentTypeWebP, res.ContentType)
	assert.Equal(t, 1600, res.Width)
	assert.Equal(t, 400, res.Height)
	assert.Len(t, res.Hash, 64)

	cfg, err := webp.DecodeConfig(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, 1600, cfg.Width)
}

func TestProcess_KeepsSmallImages(t *testing.T) {
	res, err := Process(testutil.PNG(t, 120, 90), Options{MaxDimension: 640})
	require.NoError(t, err)
	assert.Equal(t, 120, res.Width)
	assert.Equal(t, 90, res.Height)
}

func TestProcess_Rejects(t *testing.T) {
	_, err := Process(nil, Options{})
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Process([]byte("%PDF-1.4 not an image"), Options{})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestToPNG(t *testing.T) {
	res, err := Process(testutil.PNG(t, 20, 10), Options{})
	require.NoError(t, err)

	out, err := ToPNG(res.Data)
	require.NoError(t, err)
	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 20, img.Bounds().Dx())
}
