package effects

import (
	"github.com/t2bot/synthkit/common/rcontext"
	"github.com/t2bot/synthkit/samples"
	"github.com/t2bot/synthkit/samples/copier"
	"github.com/t2bot/synthkit/zones"
)

// Effect renders a zone's sample into a new one. in starts at frame 0; out has the same rate
// and channel count as in.
type Effect interface {
	Name() string
	Process(ctx rcontext.RequestContext, zone *zones.Zone, in samples.SeekableInputStream, out samples.OutputStream) error
}

// blockFrames is how many frames an effect handles per read, matching the copier's buffer.
func blockFrames(channels samples.ChannelCount) samples.FrameCount {
	return samples.FrameCount(copier.BufferSize / int(channels))
}

func newBlock(channels samples.ChannelCount) []float32 {
	return make([]float32, int(blockFrames(channels))*int(channels))
}
