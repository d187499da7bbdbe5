package util_audio

import (
	"math"
	"strings"

	"github.com/faiface/beep"
	"github.com/pkg/errors"
	"github.com/t2bot/synthkit/common"
)

const overviewBlock = 512

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// Overview splits the stream into buckets of equal length and returns the peak absolute
// amplitude of each, across both channels. Streams shorter than the bucket count produce one
// bucket per frame.
func Overview(stream beep.StreamSeekCloser, buckets int) ([]float64, error) {
	if buckets < 1 {
		return nil, common.Precondition("overview", "bucket count must be positive, got %d", buckets)
	}
	length := stream.Len()
	if length == 0 {
		return []float64{}, nil
	}
	if buckets > length {
		buckets = length
	}
	per := int(math.Ceil(float64(length) / float64(buckets)))

	if stream.Position() != 0 {
		if err := stream.Seek(0); err != nil {
			return nil, errors.Wrap(err, "overview: could not seek")
		}
	}

	peaks := make([]float64, 0, buckets)
	block := make([][2]float64, overviewBlock)
	for len(peaks) < buckets {
		peak := 0.0
		remaining := per
		for remaining > 0 {
			want := remaining
			if want > len(block) {
				want = len(block)
			}
			n, ok := stream.Stream(block[:want])
			if stream.Err() != nil {
				return nil, errors.Wrap(stream.Err(), "overview: could not stream")
			}
			for _, frame := range block[:n] {
				peak = math.Max(peak, math.Max(math.Abs(frame[0]), math.Abs(frame[1])))
			}
			remaining -= n
			if !ok || n < want {
				peaks = append(peaks, peak)
				return peaks, nil
			}
		}
		peaks = append(peaks, peak)
	}
	return peaks, nil
}

// Sparkline renders peaks in [0, 1] as a row of block characters.
func Sparkline(peaks []float64) string {
	sb := strings.Builder{}
	for _, p := range peaks {
		p = math.Max(0, math.Min(1, p))
		sb.WriteRune(sparkLevels[int(p*float64(len(sparkLevels)-1)+0.5)])
	}
	return sb.String()
}
