package effects

import (
	"math"

	"github.com/t2bot/synthkit/common"
	"github.com/t2bot/synthkit/common/config"
	"github.com/t2bot/synthkit/common/rcontext"
	"github.com/t2bot/synthkit/samples"
	"github.com/t2bot/synthkit/samples/copier"
	"github.com/t2bot/synthkit/zones"
)

// Trimmer drops leading and trailing frames whose every channel is quieter than SampleFloor.
type Trimmer struct {
	SampleFloor float32 // dBFS, at most 0
	TrimStart   bool
	TrimEnd     bool
}

func NewTrimmer(cfg config.TrimmerConfig) *Trimmer {
	return &Trimmer{
		SampleFloor: cfg.SampleFloor,
		TrimStart:   cfg.TrimStart,
		TrimEnd:     cfg.TrimEnd,
	}
}

func (t *Trimmer) Name() string {
	return "trim"
}

// DBFS is the level of one sample value relative to full scale. Silence is -MaxFloat32.
func DBFS(v float32) float32 {
	if v == 0 {
		return -math.MaxFloat32
	}
	return float32(20 * math.Log10(math.Abs(float64(v))))
}

func (t *Trimmer) loud(frame []float32) bool {
	for _, v := range frame {
		if DBFS(v) >= t.SampleFloor {
			return true
		}
	}
	return false
}

func (t *Trimmer) Process(ctx rcontext.RequestContext, zone *zones.Zone, in samples.SeekableInputStream, out samples.OutputStream) error {
	if t.SampleFloor > 0 {
		return common.Precondition("trim", "sample floor %v is above 0 dBFS", t.SampleFloor)
	}
	channels := int(in.Channels())
	block := blockFrames(in.Channels())
	buf := newBlock(in.Channels())

	start := samples.FrameCount(0)
	end := in.Frames() - 1

	if t.TrimStart {
		ctx.Log.Debug("Trimming start of sample ...")
		found := false
		for pos := samples.FrameCount(0); pos < end && !found; pos += block {
			want := block
			if pos+want > end {
				want = end - pos
			}
			n, err := in.Read(buf, want)
			if err != nil {
				return err
			}
			for i := 0; i < int(n); i++ {
				if t.loud(buf[i*channels : (i+1)*channels]) {
					start = pos + samples.FrameCount(i)
					found = true
					break
				}
			}
			if n < want {
				break
			}
		}
		if !found && end > 0 {
			start = end
		}
	}

	if t.TrimEnd {
		ctx.Log.Debug("Trimming end of sample ...")
		found := false
		for end >= start && !found {
			lo := end - block + 1
			if lo < start {
				lo = start
			}
			if err := in.Seek(lo); err != nil {
				return err
			}
			n, err := in.Read(buf, end-lo+1)
			if err != nil {
				return err
			}
			for i := int(n) - 1; i >= 0; i-- {
				if t.loud(buf[i*channels : (i+1)*channels]) {
					end = lo + samples.FrameCount(i)
					found = true
					break
				}
			}
			if !found {
				end = lo - 1
			}
		}
	}

	count := end - start + 1
	ctx.Log.Debugf("Keeping frames %d to %d of %d", start, end, in.Frames())
	if count <= 0 {
		return nil
	}
	if err := in.Seek(start); err != nil {
		return err
	}
	_, err := copier.New().Copy(in, out, count)
	return err
}
