package effects

import (
	"github.com/Jeffail/tunny"
	"github.com/olebedev/emitter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/synthkit/common"
	"github.com/t2bot/synthkit/common/rcontext"
	"github.com/t2bot/synthkit/metrics"
	"github.com/t2bot/synthkit/samples"
	"github.com/t2bot/synthkit/zones"
)

// TopicComplete is emitted after every job with the zone and the job's error (nil on success).
const TopicComplete = "effect.complete"

// Runner renders zones' wet samples on a fixed pool of workers.
type Runner struct {
	pool     *tunny.Pool
	eventBus *emitter.Emitter
	tempDir  string
	format   samples.Format
}

type job struct {
	ctx   rcontext.RequestContext
	zone  *zones.Zone
	chain []Effect
}

func NewRunner(workers int, tempDir string, format samples.Format) *Runner {
	if workers < 1 {
		workers = 1
	}
	r := &Runner{
		eventBus: &emitter.Emitter{},
		tempDir:  tempDir,
		format:   format,
	}
	r.pool = tunny.NewFunc(workers, func(i interface{}) interface{} {
		j := i.(*job)
		return r.process(j.ctx, j.zone, j.chain)
	})
	return r
}

func (r *Runner) Events() *emitter.Emitter {
	return r.eventBus
}

func (r *Runner) Close() {
	logrus.Debug("Closing effect runner")
	r.pool.Close()
}

// Run applies the chain to the zone's dry sample and stores the result as the zone's wet
// sample. An empty chain copies the dry sample. On failure the zone keeps its previous wet
// sample. Run blocks until a worker has finished the job.
func (r *Runner) Run(ctx rcontext.RequestContext, zone *zones.Zone, chain []Effect) error {
	if zone.DrySample == nil {
		return errors.Wrap(common.ErrNoSample, "effect job")
	}
	res := r.pool.Process(&job{ctx: ctx, zone: zone, chain: chain})
	err, _ := res.(error)

	if err != nil {
		metrics.EffectJobs.WithLabelValues("failure").Inc()
	} else {
		metrics.EffectJobs.WithLabelValues("success").Inc()
	}
	r.eventBus.Emit(TopicComplete, zone, err)
	return err
}

func (r *Runner) process(ctx rcontext.RequestContext, zone *zones.Zone, chain []Effect) error {
	wet, err := samples.NewTemporarySample(r.tempDir)
	if err != nil {
		return err
	}

	if len(chain) == 0 {
		err = zone.DrySample.CopyTo(wet)
	} else {
		err = r.runChain(ctx, zone, chain, wet)
	}
	if err != nil {
		_ = wet.Release()
		return err
	}

	if err = zone.WetSample.Release(); err != nil {
		ctx.Log.Warn("Error removing previous wet sample: ", err)
	}
	zone.WetSample = wet
	return nil
}

// runChain feeds each effect the previous one's output, starting from the dry sample and
// ending in wet. Intermediate samples are removed.
func (r *Runner) runChain(ctx rcontext.RequestContext, zone *zones.Zone, chain []Effect, wet *samples.Sample) error {
	src := zone.DrySample
	for i, effect := range chain {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst := wet
		if i < len(chain)-1 {
			var err error
			if dst, err = samples.NewTemporarySample(r.tempDir); err != nil {
				return err
			}
		}

		ectx := ctx.LogWithFields(logrus.Fields{"effect": effect.Name()})
		err := r.apply(ectx, zone, effect, src, dst)
		if src != zone.DrySample {
			_ = src.Release()
		}
		if err != nil {
			if dst != wet {
				_ = dst.Release()
			}
			return errors.Wrap(err, effect.Name())
		}
		src = dst
	}
	return nil
}

func (r *Runner) apply(ctx rcontext.RequestContext, zone *zones.Zone, effect Effect, src *samples.Sample, dst *samples.Sample) error {
	in, err := samples.OpenInput(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := samples.CreateOutput(dst, in.SampleRate(), in.Channels(), r.format)
	if err != nil {
		return err
	}
	if err = effect.Process(ctx, zone, in, out); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
