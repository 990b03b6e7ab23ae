package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medgo/go-medseg/transform"
)

func rampTensor(c, h, w int) *transform.Tensor {
	t := transform.NewTensor(c, h, w)
	for i := range t.Data {
		t.Data[i] = float32(i % 253)
	}
	return t
}

func TestSaveWritesPNG(t *testing.T) {
	img := rampTensor(1, 32, 32)
	path := filepath.Join(t.TempDir(), "stage.png")

	err := Save(path, Panel{Title: "image", Image: img, Guidance: &transform.Guidance{
		Positive: []transform.Point2{{X: 10, Y: 10}},
		Negative: []transform.Point2{{X: 20, Y: 20}},
	}})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSideBySide(t *testing.T) {
	img := rampTensor(3, 24, 24)
	label := transform.NewTensor(1, 24, 24)
	for y := 8; y < 16; y++ {
		for x := 8; x < 16; x++ {
			label.Data[y*24+x] = 1
		}
	}

	path := filepath.Join(t.TempDir(), "result.png")
	require.NoError(t, SideBySide(path, img, label, &transform.Guidance{
		Positive: []transform.Point2{{X: 12, Y: 12}},
	}, 0.6))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSaveRejectsEmptyAndBadInput(t *testing.T) {
	assert.Error(t, Save(filepath.Join(t.TempDir(), "x.png")))
	assert.Error(t, Save(filepath.Join(t.TempDir(), "y.png"), Panel{Title: "nil"}))

	bad := &transform.Tensor{Shape: []int{2, 2, 2, 2}, Data: make([]float32, 16)}
	assert.Error(t, Save(filepath.Join(t.TempDir(), "z.png"), Panel{Image: bad}))
}

func TestTensorGridFlipsRows(t *testing.T) {
	tt := transform.NewTensor(2, 2)
	tt.Data = []float32{1, 2, 3, 4} // row 0: 1 2, row 1: 3 4

	g, err := newTensorGrid(tt, 0)
	require.NoError(t, err)

	c, r := g.Dims()
	assert.Equal(t, 2, c)
	assert.Equal(t, 2, r)
	// plot row 0 is the bottom, image row 1
	assert.Equal(t, 3.0, g.Z(0, 0))
	assert.Equal(t, 1.0, g.Z(0, 1))
}
