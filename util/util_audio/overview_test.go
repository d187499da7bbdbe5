package util_audio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t2bot/synthkit/common"
	"github.com/t2bot/synthkit/samples"
)

func TestOverview(t *testing.T) {
	data := make([]float32, 2000)
	for i := 0; i < 1000; i++ {
		data[i] = 0.25
	}
	data[1500] = -0.9
	stream := samples.NewBeepStream(samples.NewMemoryStream(1, 44100, data))
	defer stream.Close()

	peaks, err := Overview(stream, 4)
	require.NoError(t, err)
	require.Len(t, peaks, 4)
	assert.InDelta(t, 0.25, peaks[0], 1e-6)
	assert.InDelta(t, 0.25, peaks[1], 1e-6)
	assert.InDelta(t, 0, peaks[2], 1e-6)
	assert.InDelta(t, 0.9, peaks[3], 1e-6)

	// Runs again from the start.
	again, err := Overview(stream, 4)
	require.NoError(t, err)
	assert.Equal(t, peaks, again)
}

func TestOverviewShortStreams(t *testing.T) {
	short := samples.NewBeepStream(samples.NewMemoryStream(2, 44100, []float32{0.1, -0.5, 0.2, 0}))
	peaks, err := Overview(short, 10)
	require.NoError(t, err)
	require.Len(t, peaks, 2)
	assert.InDelta(t, 0.5, peaks[0], 1e-6)
	assert.InDelta(t, 0.2, peaks[1], 1e-6)

	empty := samples.NewBeepStream(samples.NewMemoryStream(1, 44100, nil))
	peaks, err = Overview(empty, 10)
	require.NoError(t, err)
	assert.Empty(t, peaks)

	_, err = Overview(empty, 0)
	assert.ErrorIs(t, err, common.ErrPreconditionViolation)
}

var errDeviceGone = errors.New("device gone")

// failingStream sits mid-way through its data and fails every seek and read.
type failingStream struct{}

func (failingStream) Stream(samples [][2]float64) (int, bool) { return 0, false }
func (failingStream) Err() error                              { return errDeviceGone }
func (failingStream) Len() int                                { return 100 }
func (failingStream) Position() int                           { return 10 }
func (failingStream) Seek(p int) error                        { return errDeviceGone }
func (failingStream) Close() error                            { return nil }

func TestOverviewKeepsStreamErrors(t *testing.T) {
	_, err := Overview(failingStream{}, 4)
	assert.ErrorIs(t, err, errDeviceGone)
	assert.Contains(t, err.Error(), "overview: could not seek")
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "▁▅█", Sparkline([]float64{0, 0.6, 1}))
	assert.Equal(t, "▁█", Sparkline([]float64{-1, 2}))
	assert.Equal(t, "", Sparkline(nil))
}
