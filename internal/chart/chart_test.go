package chart

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestRenderProducesPNG(t *testing.T) {
	out, err := Render(35, 65)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.True(t, bytes.HasPrefix(out, pngMagic), "output is not a PNG")
}

func TestRenderZeroZeroFallsBackToEvenSplit(t *testing.T) {
	out, err := Render(0, 0)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	// the fallback renders the same image as an explicit 50/50 split
	even, err := Render(50, 50)
	require.NoError(t, err)
	assert.Equal(t, even, out)
}

func TestRenderIsDeterministic(t *testing.T) {
	a, err := Render(20, 80)
	require.NoError(t, err)
	b, err := Render(20, 80)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSegmentLabelHiddenBelowTenPercent(t *testing.T) {
	assert.Empty(t, segment(9, proactiveColor).Label)
	assert.Equal(t, "10%", segment(10, proactiveColor).Label)
	assert.Equal(t, "87%", segment(87.4, reactiveColor).Label)
}
