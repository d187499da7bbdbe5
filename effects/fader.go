package effects

import (
	"io"
	"math"

	"github.com/t2bot/synthkit/common"
	"github.com/t2bot/synthkit/common/config"
	"github.com/t2bot/synthkit/common/rcontext"
	"github.com/t2bot/synthkit/samples"
	"github.com/t2bot/synthkit/samples/copier"
	"github.com/t2bot/synthkit/zones"
)

// Fader ramps the start of a sample up from FadeInStartVolume and the end down to
// FadeOutEndVolume. Volumes are in dB and at most 0; times are in seconds.
type Fader struct {
	FadeInEnabled     bool
	FadeInStartVolume float32
	FadeInTime        float32
	FadeOutEnabled    bool
	FadeOutEndVolume  float32
	FadeOutTime       float32
}

func NewFader(cfg config.FaderConfig) *Fader {
	return &Fader{
		FadeInEnabled:     cfg.FadeInEnabled,
		FadeInStartVolume: cfg.FadeInStartVolume,
		FadeInTime:        cfg.FadeInTime,
		FadeOutEnabled:    cfg.FadeOutEnabled,
		FadeOutEndVolume:  cfg.FadeOutEndVolume,
		FadeOutTime:       cfg.FadeOutTime,
	}
}

func (f *Fader) Name() string {
	return "fade"
}

// Amplitude converts a level in dB to a linear gain.
func Amplitude(db float32) float32 {
	return float32(math.Pow(10, float64(db)/20))
}

func (f *Fader) validate() error {
	if f.FadeInEnabled && (f.FadeInStartVolume > 0 || f.FadeInTime <= 0) {
		return common.Precondition("fade", "fade-in needs a volume <= 0 and a time > 0 (got %v dB, %vs)", f.FadeInStartVolume, f.FadeInTime)
	}
	if f.FadeOutEnabled && (f.FadeOutEndVolume > 0 || f.FadeOutTime <= 0) {
		return common.Precondition("fade", "fade-out needs a volume <= 0 and a time > 0 (got %v dB, %vs)", f.FadeOutEndVolume, f.FadeOutTime)
	}
	return nil
}

// fadeFrames returns the length of both fades. Fades that would overlap are shortened in
// proportion so that together they cover the whole sample.
func (f *Fader) fadeFrames(frames samples.FrameCount, rate samples.SampleRate) (samples.FrameCount, samples.FrameCount) {
	var fadeIn, fadeOut samples.FrameCount
	if f.FadeInEnabled {
		fadeIn = samples.FrameCount(f.FadeInTime * float32(rate))
	}
	if f.FadeOutEnabled {
		fadeOut = samples.FrameCount(f.FadeOutTime * float32(rate))
	}
	if total := fadeIn + fadeOut; total > frames {
		fadeIn = samples.FrameCount(float32(fadeIn) * (float32(frames) / float32(total)))
		fadeOut = frames - fadeIn
	}
	return fadeIn, fadeOut
}

func (f *Fader) Process(ctx rcontext.RequestContext, zone *zones.Zone, in samples.SeekableInputStream, out samples.OutputStream) error {
	if err := f.validate(); err != nil {
		return err
	}
	frames := in.Frames()
	fadeIn, fadeOut := f.fadeFrames(frames, in.SampleRate())
	fadeOutStart := frames - fadeOut
	ctx.Log.Debugf("Fading in over %d frames and out over %d frames", fadeIn, fadeOut)

	buf := newBlock(in.Channels())
	if fadeIn > 0 {
		err := applyGain(in, out, buf, 0, fadeIn, func(i samples.FrameCount) float32 {
			return Amplitude(f.FadeInStartVolume * (1 - float32(i+1)/float32(fadeIn)))
		})
		if err != nil {
			return err
		}
	}
	if middle := fadeOutStart - fadeIn; middle > 0 {
		if _, err := copier.New().Copy(in, out, middle); err != nil {
			return err
		}
	}
	if fadeOut > 0 {
		return applyGain(in, out, buf, fadeOutStart, frames, func(i samples.FrameCount) float32 {
			return Amplitude(f.FadeOutEndVolume * (float32(i+1-fadeOutStart) / float32(fadeOut)))
		})
	}
	return nil
}

// applyGain copies frames [from, to) from in to out, scaling each frame by gain(frame).
func applyGain(in samples.InputStream, out samples.OutputStream, buf []float32, from samples.FrameCount, to samples.FrameCount, gain func(samples.FrameCount) float32) error {
	channels := int(in.Channels())
	block := blockFrames(in.Channels())
	for pos := from; pos < to; {
		want := to - pos
		if want > block {
			want = block
		}
		n, err := in.Read(buf, want)
		if err != nil {
			return err
		}
		if n == 0 {
			return common.IOFailure("fade", "", io.ErrUnexpectedEOF)
		}
		for i := 0; i < int(n); i++ {
			g := gain(pos + samples.FrameCount(i))
			for c := 0; c < channels; c++ {
				buf[i*channels+c] *= g
			}
		}
		if err = out.Write(buf, n); err != nil {
			return err
		}
		pos += n
	}
	return nil
}
