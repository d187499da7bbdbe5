package effects

import (
	"io"

	"github.com/t2bot/synthkit/common"
	"github.com/t2bot/synthkit/common/rcontext"
	"github.com/t2bot/synthkit/samples"
	"github.com/t2bot/synthkit/zones"
)

type Reverser struct{}

func NewReverser() *Reverser {
	return &Reverser{}
}

func (r *Reverser) Name() string {
	return "reverse"
}

// Process writes the input's frames last to first. The input is read backwards one block at a
// time.
func (r *Reverser) Process(ctx rcontext.RequestContext, zone *zones.Zone, in samples.SeekableInputStream, out samples.OutputStream) error {
	ctx.Log.Debug("Reversing sample ...")
	channels := int(in.Channels())
	block := blockFrames(in.Channels())
	buf := newBlock(in.Channels())

	for end := in.Frames(); end > 0; {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := end - block
		if start < 0 {
			start = 0
		}
		if err := in.Seek(start); err != nil {
			return err
		}
		n, err := in.Read(buf, end-start)
		if err != nil {
			return err
		}
		if n != end-start {
			return common.IOFailure("reverse", "", io.ErrUnexpectedEOF)
		}
		for i, j := 0, int(n)-1; i < j; i, j = i+1, j-1 {
			for c := 0; c < channels; c++ {
				buf[i*channels+c], buf[j*channels+c] = buf[j*channels+c], buf[i*channels+c]
			}
		}
		if err = out.Write(buf, n); err != nil {
			return err
		}
		end = start
	}
	return nil
}
