package archival

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/olebedev/emitter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/synthkit/archival/kitarchive"
	"github.com/t2bot/synthkit/common"
	"github.com/t2bot/synthkit/common/config"
	"github.com/t2bot/synthkit/common/rcontext"
	"github.com/t2bot/synthkit/drumkit"
	"github.com/t2bot/synthkit/metrics"
	"github.com/t2bot/synthkit/samples"
	"github.com/t2bot/synthkit/samples/copier"
	"github.com/t2bot/synthkit/zones"
	"golang.org/x/sync/errgroup"
)

// Event topics published during an export. Progress carries a float32 in [0, 1]; status and
// warning carry a string.
const (
	TopicProgress = "kit.progress"
	TopicStatus   = "kit.status"
	TopicWarning  = "kit.warning"
)

const KitExtension = ".h2drumkit"

type LayerAlgorithm int

const (
	LayerLinear LayerAlgorithm = iota
	LayerMaximum
	LayerMinimum
)

func ParseLayerAlgorithm(name string) (LayerAlgorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linear", "":
		return LayerLinear, nil
	case "maximum":
		return LayerMaximum, nil
	case "minimum":
		return LayerMinimum, nil
	}
	return 0, fmt.Errorf("unknown layer algorithm: %s", name)
}

// highVelocity is the upper bound of a layer that is followed by another layer.
func (a LayerAlgorithm) highVelocity(current zones.MIDIData, next zones.MIDIData) float32 {
	switch a {
	case LayerMaximum:
		return float32(current) / 127.0
	case LayerMinimum:
		return float32(next) / 127.0
	default:
		return (float32(next) + float32(current)) / 254.0
	}
}

type ExportOpts struct {
	Name            string
	Author          string
	Info            string
	License         string
	LayerAlgorithm  LayerAlgorithm
	Format          samples.Format
	SampleRate      samples.SampleRate // 0 keeps each sample's own rate
	Workers         int
	MaxInstruments  int
	MaxLayers       int
	ResampleQuality int
	TempDirectory   string
}

func ExportOptsFromConfig(cfg config.MainConfig, name string) (ExportOpts, error) {
	algorithm, err := ParseLayerAlgorithm(cfg.Kit.LayerAlgorithm)
	if err != nil {
		return ExportOpts{}, err
	}
	format, err := samples.ParseFormat(cfg.Kit.SampleFormat)
	if err != nil {
		return ExportOpts{}, err
	}
	return ExportOpts{
		Name:            name,
		Author:          cfg.Kit.Author,
		Info:            cfg.Kit.Info,
		License:         cfg.Kit.License,
		LayerAlgorithm:  algorithm,
		Format:          format,
		SampleRate:      samples.SampleRate(cfg.Kit.SampleRate),
		Workers:         cfg.Kit.ConversionWorkers,
		MaxInstruments:  cfg.Kit.MaxInstruments,
		MaxLayers:       cfg.Kit.MaxLayers,
		ResampleQuality: cfg.Effects.ResampleQuality,
		TempDirectory:   cfg.TempDirectory,
	}, nil
}

func (o ExportOpts) withDefaults() ExportOpts {
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.MaxInstruments < 1 {
		o.MaxInstruments = 1000
	}
	if o.MaxLayers < 1 {
		o.MaxLayers = 16
	}
	if o.ResampleQuality < 1 {
		o.ResampleQuality = 4
	}
	return o
}

type BuildResult struct {
	ArchivePath string
	Instruments int
	Layers      int
	Warnings    []string
}

type plannedLayer struct {
	instrument int
	layer      int
	fileName   string
	zone       *zones.Zone
	converted  *samples.Sample
}

type kitBuild struct {
	ctx    rcontext.RequestContext
	opts   ExportOpts
	events *emitter.Emitter
	result *BuildResult

	progressLock sync.Mutex
	progress     float32
}

// ExportKit writes the zones as a Hydrogen drum kit archive named <dir>/<opts.Name>.h2drumkit.
// Each distinct trigger (channel, note, aftertouch and controllers) becomes an instrument whose
// layers are the zones sharing it, ordered by velocity. events may be nil.
func ExportKit(ctx rcontext.RequestContext, list []*zones.Zone, dir string, opts ExportOpts, events *emitter.Emitter) (*BuildResult, error) {
	opts = opts.withDefaults()
	if err := validateTarget(dir, opts.Name); err != nil {
		metrics.KitBuilds.WithLabelValues("failure").Inc()
		return nil, err
	}
	ctx = ctx.LogWithFields(logrus.Fields{
		"kit_export-name": opts.Name,
		"kit_export-dir":  dir,
	})

	b := &kitBuild{
		ctx:    ctx,
		opts:   opts,
		events: events,
		result: &BuildResult{
			ArchivePath: filepath.Join(dir, opts.Name+KitExtension),
			Warnings:    make([]string, 0),
		},
	}

	layers, err := b.plan(list)
	if err == nil {
		err = b.convert(layers)
		if err == nil {
			err = b.write(layers)
		}
	}
	for _, l := range layers {
		if rerr := l.converted.Release(); rerr != nil {
			ctx.Log.Warn("Error removing converted sample: ", rerr)
		}
	}

	if err != nil {
		metrics.KitBuilds.WithLabelValues("failure").Inc()
		b.status("Idle.")
		return nil, err
	}
	metrics.KitBuilds.WithLabelValues("success").Inc()
	b.setProgress(1)
	b.status("Idle.")
	return b.result, nil
}

func validateTarget(dir string, name string) error {
	if dir == "" {
		return errors.Wrap(common.ErrKitDirectory, "no directory given")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return errors.Wrap(common.ErrKitDirectory, err.Error())
	}
	if !info.IsDir() {
		return errors.Wrap(common.ErrKitDirectory, dir+" is not a directory")
	}
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return errors.Wrap(common.ErrInvalidKitName, fmt.Sprintf("%q", name))
	}
	return nil
}

// plan groups the zones into instruments and layers. The first half of the progress range is
// spent here.
func (b *kitBuild) plan(list []*zones.Zone) ([]*plannedLayer, error) {
	b.status("Creating zone map ...")
	usable := make([]*zones.Zone, 0, len(list))
	for i, z := range list {
		b.setProgress(float32(i) / float32(len(list)) * 0.5)
		if z.Sample() == nil {
			b.warn(fmt.Sprintf("Zone %d has no sample and will be skipped", i+1))
			continue
		}
		usable = append(usable, z)
	}
	b.setProgress(0.5)

	keys, groups := zones.Group(usable)
	if len(keys) > b.opts.MaxInstruments {
		b.warn(fmt.Sprintf("The zone list contains %d instruments. Hydrogen only supports %d instruments per drum kit. Some instruments will not be generated.", len(keys), b.opts.MaxInstruments))
		keys = keys[:b.opts.MaxInstruments]
	}

	b.status("Writing instrument list ...")
	layers := make([]*plannedLayer, 0)
	overflows := 0
	for i, k := range keys {
		group := groups[k]
		zones.SortByVelocity(group)
		if len(group) > b.opts.MaxLayers {
			group = group[:b.opts.MaxLayers]
			overflows++
		}
		for j, z := range group {
			layers = append(layers, &plannedLayer{
				instrument: i,
				layer:      j,
				fileName:   fmt.Sprintf("instrument%d-layer%d.%s", i+1, j+1, b.opts.Format.Extension()),
				zone:       z,
			})
		}
	}
	if overflows > 0 {
		b.warn(fmt.Sprintf("%d instruments have more than %d layers. Hydrogen only supports %d layers per instrument. Some layers will not be generated.", overflows, b.opts.MaxLayers, b.opts.MaxLayers))
	}

	b.result.Instruments = len(keys)
	b.result.Layers = len(layers)
	return layers, nil
}

// convert renders every layer's sample in the output format, in parallel. Layers without a
// destination get a temporary sample. The second half of the progress range is spent here.
func (b *kitBuild) convert(layers []*plannedLayer) error {
	if len(layers) == 0 {
		return nil
	}
	group, gctx := errgroup.WithContext(b.ctx)
	group.SetLimit(b.opts.Workers)

	done := 0
	doneLock := sync.Mutex{}
	for _, l := range layers {
		l := l
		if l.converted == nil {
			converted, err := samples.NewTemporarySample(b.opts.TempDirectory)
			if err != nil {
				_ = group.Wait()
				return err
			}
			l.converted = converted
		}

		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b.status(fmt.Sprintf("Converting layer %d for instrument %d ...", l.layer+1, l.instrument+1))
			if err := b.convertSample(l.zone.Sample(), l.converted); err != nil {
				return errors.Wrap(err, l.fileName)
			}
			doneLock.Lock()
			done++
			b.setProgress(0.5 + float32(done)/float32(len(layers))*0.5)
			doneLock.Unlock()
			return nil
		})
	}
	return group.Wait()
}

func (b *kitBuild) convertSample(src *samples.Sample, dst *samples.Sample) error {
	in, err := samples.OpenInput(src)
	if err != nil {
		return err
	}
	defer in.Close()

	rate := b.opts.SampleRate
	if rate == 0 {
		rate = in.SampleRate()
	}
	out, err := samples.CreateOutput(dst, rate, in.Channels(), b.opts.Format)
	if err != nil {
		return err
	}
	if rate == in.SampleRate() {
		_, err = copier.Copy(in, out, in.Frames())
	} else {
		_, err = samples.Resample(in, out, b.opts.ResampleQuality)
	}
	if err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func (b *kitBuild) write(layers []*plannedLayer) error {
	kit := &drumkit.Kit{
		Name:           b.opts.Name,
		Author:         b.opts.Author,
		Info:           b.opts.Info,
		License:        b.opts.License,
		InstrumentList: &drumkit.InstrumentList{Instruments: make([]drumkit.Instrument, 0, b.result.Instruments)},
	}
	for start := 0; start < len(layers); {
		end := start
		for end < len(layers) && layers[end].instrument == layers[start].instrument {
			end++
		}
		inst := drumkit.NewInstrument(layers[start].instrument)
		low := float32(0)
		for j := start; j < end; j++ {
			high := float32(1)
			if j < end-1 {
				high = b.opts.LayerAlgorithm.highVelocity(layers[j].zone.Velocity, layers[j+1].zone.Velocity)
			}
			inst.Layers = append(inst.Layers, drumkit.NewLayer(layers[j].fileName, low, high))
			low = high
		}
		kit.InstrumentList.Instruments = append(kit.InstrumentList.Instruments, inst)
		start = end
	}
	configuration, err := drumkit.Encode(kit)
	if err != nil {
		return err
	}

	b.status("Writing kit archive ...")
	writer, err := kitarchive.NewWriter(b.ctx, b.result.ArchivePath, b.opts.Name)
	if err != nil {
		return err
	}
	defer writer.Release()

	fail := func(err error) error {
		_ = writer.Close()
		_ = os.Remove(b.result.ArchivePath)
		return err
	}
	if err = writer.AddConfiguration(configuration); err != nil {
		return fail(err)
	}
	for _, l := range layers {
		if err = writer.AddSample(l.fileName, l.converted); err != nil {
			return fail(err)
		}
	}
	if err = writer.Close(); err != nil {
		return err
	}

	if stat, err := os.Stat(b.result.ArchivePath); err == nil {
		b.ctx.Log.Infof("Wrote %d instruments (%d layers) to %s (%s)", b.result.Instruments, b.result.Layers, b.result.ArchivePath, humanize.Bytes(uint64(stat.Size())))
	}
	return nil
}

func (b *kitBuild) setProgress(p float32) {
	b.progressLock.Lock()
	defer b.progressLock.Unlock()
	if p < b.progress {
		return
	}
	b.progress = p
	b.emit(TopicProgress, p)
}

func (b *kitBuild) status(s string) {
	b.ctx.Log.Debug(s)
	b.emit(TopicStatus, s)
}

func (b *kitBuild) warn(s string) {
	b.ctx.Log.Warn(s)
	b.progressLock.Lock()
	b.result.Warnings = append(b.result.Warnings, s)
	b.progressLock.Unlock()
	b.emit(TopicWarning, s)
}

func (b *kitBuild) emit(topic string, arg interface{}) {
	if b.events == nil {
		return
	}
	<-b.events.Emit(topic, arg)
}
