package archival

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"
	"github.com/olebedev/emitter"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/synthkit/common"
	"github.com/t2bot/synthkit/common/config"
	"github.com/t2bot/synthkit/common/rcontext"
	"github.com/t2bot/synthkit/metrics"
	"github.com/t2bot/synthkit/samples"
	"github.com/t2bot/synthkit/zones"
)

const SfzExtension = ".sfz"

const sfzSampleDirectory = "samples"

// Pseudo controllers for control layers keyed on pressure instead of a numbered controller.
const (
	ControlChannelPressure zones.MIDIData = 0x81
	ControlAftertouch      zones.MIDIData = 0x82
)

type CrossfadeCurve int

const (
	CrossfadeNone CrossfadeCurve = iota
	CrossfadeGain
	CrossfadePower
)

func ParseCrossfadeCurve(name string) (CrossfadeCurve, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "":
		return CrossfadeNone, nil
	case "gain":
		return CrossfadeGain, nil
	case "power":
		return CrossfadePower, nil
	}
	return 0, fmt.Errorf("unknown crossfade curve: %s", name)
}

func (c CrossfadeCurve) String() string {
	switch c {
	case CrossfadeGain:
		return "gain"
	case CrossfadePower:
		return "power"
	}
	return ""
}

// ControlLayer splits the zones of a note by the value of one controller. Switch layers cover
// value ranges; continuous layers may crossfade between neighbouring values instead.
type ControlLayer struct {
	Control    zones.MIDIData
	Continuous bool
	Default    zones.MIDIData
	Crossfade  bool
}

// NewControlLayer treats the pedal controllers 64 to 69 as switches.
func NewControlLayer(control zones.MIDIData) ControlLayer {
	return ControlLayer{
		Control:    control,
		Continuous: control < 64 || control > 69,
	}
}

func ParseControlLayer(cfg config.ControlLayerConfig) (ControlLayer, error) {
	var layer ControlLayer
	switch strings.ToLower(strings.TrimSpace(cfg.Control)) {
	case "aftertouch":
		layer = NewControlLayer(ControlAftertouch)
	case "channelpressure", "pressure":
		layer = NewControlLayer(ControlChannelPressure)
	default:
		n, err := strconv.Atoi(strings.TrimSpace(cfg.Control))
		if err != nil || n < 0 || n >= zones.ControlCount {
			return layer, fmt.Errorf("unknown control: %s", cfg.Control)
		}
		layer = NewControlLayer(zones.MIDIData(n))
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "":
	case "switch":
		layer.Continuous = false
	case "continuous":
		layer.Continuous = true
	default:
		return layer, fmt.Errorf("unknown control type: %s", cfg.Type)
	}
	layer.Default = zones.MIDIData(cfg.Default)
	layer.Crossfade = cfg.Crossfade
	return layer, nil
}

func (c ControlLayer) numbered() bool {
	return c.Control < zones.ControlCount
}

func (c ControlLayer) value(z *zones.Zone) zones.MIDIData {
	switch c.Control {
	case ControlAftertouch:
		return z.Aftertouch
	case ControlChannelPressure:
		return z.ChannelPressure
	}
	return z.ControlValue(c.Control)
}

func (c ControlLayer) rangeOpcodes(low int, high int) string {
	switch c.Control {
	case ControlAftertouch:
		return fmt.Sprintf("lopolyaft=%d hipolyaft=%d", low, high)
	case ControlChannelPressure:
		return fmt.Sprintf("lochanaft=%d hichanaft=%d", low, high)
	}
	return fmt.Sprintf("locc%d=%d hicc%d=%d", c.Control, low, c.Control, high)
}

type SfzOpts struct {
	Name            string
	DrumKit         bool
	LayerAlgorithm  LayerAlgorithm
	CrossfadeCurve  CrossfadeCurve
	ControlLayers   []ControlLayer
	Format          samples.Format
	SampleRate      samples.SampleRate // 0 keeps each sample's own rate
	Workers         int
	ResampleQuality int
	TempDirectory   string
}

func SfzOptsFromConfig(cfg config.MainConfig, name string) (SfzOpts, error) {
	kit, err := ExportOptsFromConfig(cfg, name)
	if err != nil {
		return SfzOpts{}, err
	}
	curve, err := ParseCrossfadeCurve(cfg.Sfz.CrossfadeCurve)
	if err != nil {
		return SfzOpts{}, err
	}
	layers := make([]ControlLayer, 0, len(cfg.Sfz.ControlLayers))
	for _, c := range cfg.Sfz.ControlLayers {
		layer, err := ParseControlLayer(c)
		if err != nil {
			return SfzOpts{}, err
		}
		layers = append(layers, layer)
	}
	return SfzOpts{
		Name:            name,
		DrumKit:         cfg.Sfz.DrumKit,
		LayerAlgorithm:  kit.LayerAlgorithm,
		CrossfadeCurve:  curve,
		ControlLayers:   layers,
		Format:          kit.Format,
		SampleRate:      kit.SampleRate,
		Workers:         kit.Workers,
		ResampleQuality: kit.ResampleQuality,
		TempDirectory:   kit.TempDirectory,
	}, nil
}

func (o SfzOpts) validate() error {
	const op = "export sfz"
	seen := make(map[zones.MIDIData]bool)
	for _, c := range o.ControlLayers {
		if !c.numbered() && c.Control != ControlAftertouch && c.Control != ControlChannelPressure {
			return common.Precondition(op, "unknown control %#x", c.Control)
		}
		if seen[c.Control] {
			return common.Precondition(op, "control %d layered twice", c.Control)
		}
		seen[c.Control] = true
		if c.Default > 0x7f {
			return common.Precondition(op, "default %d for control %d outside [0, 127]", c.Default, c.Control)
		}
		if c.Crossfade && (!c.Continuous || !c.numbered()) {
			return common.Precondition(op, "control %d cannot crossfade", c.Control)
		}
	}
	return nil
}

// valueRanges turns ascending layer values into inclusive, gapless MIDI ranges covering 0 to
// 127. The layer algorithm decides where one layer hands over to the next.
func valueRanges(algorithm LayerAlgorithm, values []zones.MIDIData) [][2]int {
	ranges := make([][2]int, 0, len(values))
	low := 0
	for i, v := range values {
		high := 0x7f
		if i < len(values)-1 {
			next := int(values[i+1])
			switch algorithm {
			case LayerMaximum:
				high = int(v)
			case LayerMinimum:
				high = next - 1
			default:
				high = (int(v) + next) / 2
			}
		}
		if low > 0x7f {
			low = 0x7f
		}
		if high < low {
			high = low
		}
		if high > 0x7f {
			high = 0x7f
		}
		ranges = append(ranges, [2]int{low, high})
		low = high + 1
	}
	return ranges
}

type SfzDefault struct {
	Control int
	Value   int
}

type SfzRegion struct {
	Sample       string
	LowVelocity  int
	HighVelocity int
	Opcodes      []string
}

type SfzGroup struct {
	Channel int
	Note    int
	LowKey  int
	HighKey int
	Regions []*SfzRegion
}

type SfzInstrument struct {
	Name     string
	OneShot  bool
	Curve    string
	Defaults []SfzDefault
	Groups   []*SfzGroup
}

var sfzTemplate = template.Must(template.New("sfz").Parse(`// {{.Name}}
{{- if .Defaults}}

<control>
{{- range .Defaults}}
set_cc{{.Control}}={{.Value}}
{{- end}}
{{- end}}
{{- if .Curve}}

<global>
xf_cccurve={{.Curve}}
{{- end}}
{{- range .Groups}}

<group> lochan={{.Channel}} hichan={{.Channel}} lokey={{.LowKey}} hikey={{.HighKey}} pitch_keycenter={{.Note}}{{if $.OneShot}} loop_mode=one_shot{{end}}
{{- range .Regions}}
<region> sample={{.Sample}} lovel={{.LowVelocity}} hivel={{.HighVelocity}}{{range .Opcodes}} {{.}}{{end}}
{{- end}}
{{- end}}
`))

// sfzTrigger holds what tells zones of one note apart, velocity aside.
type sfzTrigger struct {
	aftertouch zones.MIDIData
	pressure   zones.MIDIData
	controls   [zones.ControlCount]zones.MIDIData
}

func triggerOf(z *zones.Zone) sfzTrigger {
	t := sfzTrigger{aftertouch: z.Aftertouch, pressure: z.ChannelPressure}
	for i := range t.controls {
		t.controls[i] = z.ControlValue(zones.MIDIData(i))
	}
	return t
}

type sfzColumn struct {
	channel zones.MIDIData
	note    zones.MIDIData
	zones   []*zones.Zone
}

type sfzBuild struct {
	*kitBuild
	sfz    SfzOpts
	kitDir string
}

// ExportSfz writes the zones as an SFZ instrument: <dir>/<opts.Name>/<opts.Name>.sfz next to a
// samples directory holding the converted samples. Each channel and note becomes a group whose
// regions split the zones by velocity and by the configured control layers. events may be nil.
func ExportSfz(ctx rcontext.RequestContext, list []*zones.Zone, dir string, opts SfzOpts, events *emitter.Emitter) (*BuildResult, error) {
	if err := validateTarget(dir, opts.Name); err != nil {
		metrics.KitBuilds.WithLabelValues("failure").Inc()
		return nil, err
	}
	if err := opts.validate(); err != nil {
		metrics.KitBuilds.WithLabelValues("failure").Inc()
		return nil, err
	}
	ctx = ctx.LogWithFields(logrus.Fields{
		"sfz_export-name": opts.Name,
		"sfz_export-dir":  dir,
	})

	kitDir := filepath.Join(dir, opts.Name)
	b := &sfzBuild{
		kitBuild: &kitBuild{
			ctx: ctx,
			opts: ExportOpts{
				Name:            opts.Name,
				LayerAlgorithm:  opts.LayerAlgorithm,
				Format:          opts.Format,
				SampleRate:      opts.SampleRate,
				Workers:         opts.Workers,
				ResampleQuality: opts.ResampleQuality,
				TempDirectory:   opts.TempDirectory,
			}.withDefaults(),
			events: events,
			result: &BuildResult{
				ArchivePath: filepath.Join(kitDir, opts.Name+SfzExtension),
				Warnings:    make([]string, 0),
			},
		},
		sfz:    opts,
		kitDir: kitDir,
	}

	instrument, layers := b.plan(list)
	err := os.MkdirAll(filepath.Join(kitDir, sfzSampleDirectory), 0755)
	if err != nil {
		err = common.IOFailure("export sfz", kitDir, err)
	} else {
		for _, l := range layers {
			l.converted = samples.NewSample(filepath.Join(kitDir, filepath.FromSlash(l.fileName)))
		}
		if err = b.convert(layers); err == nil {
			err = b.write(instrument)
		}
	}

	if err != nil {
		for _, l := range layers {
			if l.converted != nil {
				_ = os.Remove(l.converted.Path())
			}
		}
		metrics.KitBuilds.WithLabelValues("failure").Inc()
		b.status("Idle.")
		return nil, err
	}
	metrics.KitBuilds.WithLabelValues("success").Inc()
	b.setProgress(1)
	b.status("Idle.")
	return b.result, nil
}

// plan lays the zones out as groups and regions. The first half of the progress range is
// spent here.
func (b *sfzBuild) plan(list []*zones.Zone) (*SfzInstrument, []*plannedLayer) {
	b.status("Creating zone map ...")
	layered := make(map[zones.MIDIData]bool)
	for _, c := range b.sfz.ControlLayers {
		layered[c.Control] = true
	}
	ignored := make(map[zones.MIDIData]bool)

	columns := make([]*sfzColumn, 0)
	byTrigger := make(map[[2]zones.MIDIData]*sfzColumn)
	for i, z := range list {
		b.setProgress(float32(i) / float32(len(list)) * 0.5)
		if z.Sample() == nil {
			b.warn(fmt.Sprintf("Zone %d has no sample and will be skipped", i+1))
			continue
		}
		if z.Aftertouch != zones.MIDIDataNotSet && !layered[ControlAftertouch] {
			ignored[ControlAftertouch] = true
		}
		if z.ChannelPressure != zones.MIDIDataNotSet && !layered[ControlChannelPressure] {
			ignored[ControlChannelPressure] = true
		}
		for c := range z.Controls {
			if !layered[c] {
				ignored[c] = true
			}
		}
		key := [2]zones.MIDIData{z.Channel, z.Note}
		col, ok := byTrigger[key]
		if !ok {
			col = &sfzColumn{channel: z.Channel, note: z.Note}
			byTrigger[key] = col
			columns = append(columns, col)
		}
		col.zones = append(col.zones, z)
	}
	b.setProgress(0.5)
	sort.Slice(columns, func(i, j int) bool {
		if columns[i].channel != columns[j].channel {
			return columns[i].channel < columns[j].channel
		}
		return columns[i].note < columns[j].note
	})

	warnings := make([]int, 0, len(ignored))
	for c := range ignored {
		warnings = append(warnings, int(c))
	}
	sort.Ints(warnings)
	for _, c := range warnings {
		switch zones.MIDIData(c) {
		case ControlAftertouch:
			b.warn("Some zones set aftertouch, which is not a control layer. Their regions will overlap.")
		case ControlChannelPressure:
			b.warn("Some zones set channel pressure, which is not a control layer. Their regions will overlap.")
		default:
			b.warn(fmt.Sprintf("Some zones set controller %d, which is not a control layer. Their regions will overlap.", c))
		}
	}

	b.status("Writing region list ...")
	instrument := &SfzInstrument{
		Name:     b.sfz.Name,
		OneShot:  b.sfz.DrumKit,
		Defaults: make([]SfzDefault, 0),
		Groups:   make([]*SfzGroup, 0, len(columns)),
	}
	for _, c := range b.sfz.ControlLayers {
		if c.numbered() {
			instrument.Defaults = append(instrument.Defaults, SfzDefault{Control: int(c.Control), Value: int(c.Default)})
		}
		if c.Crossfade && b.sfz.CrossfadeCurve != CrossfadeNone {
			instrument.Curve = b.sfz.CrossfadeCurve.String()
		}
	}

	layers := make([]*plannedLayer, 0)
	for i, col := range columns {
		group := &SfzGroup{
			Channel: int(col.channel) + 1,
			Note:    int(col.note),
			LowKey:  int(col.note),
			HighKey: int(col.note),
			Regions: make([]*SfzRegion, 0, len(col.zones)),
		}
		if !b.sfz.DrumKit {
			if i > 0 && columns[i-1].channel == col.channel {
				group.LowKey = instrument.Groups[i-1].HighKey + 1
			} else {
				group.LowKey = 0
			}
			if i < len(columns)-1 && columns[i+1].channel == col.channel {
				group.HighKey = (int(col.note) + int(columns[i+1].note)) / 2
			} else {
				group.HighKey = 0x7f
			}
		}
		instrument.Groups = append(instrument.Groups, group)

		values := make(map[zones.MIDIData][]zones.MIDIData)
		for _, c := range b.sfz.ControlLayers {
			values[c.Control] = distinctValues(col.zones, c)
		}

		triggers := make([]sfzTrigger, 0)
		byValues := make(map[sfzTrigger][]*zones.Zone)
		for _, z := range col.zones {
			t := triggerOf(z)
			if _, ok := byValues[t]; !ok {
				triggers = append(triggers, t)
			}
			byValues[t] = append(byValues[t], z)
		}
		for _, t := range triggers {
			velocityLayers := byValues[t]
			zones.SortByVelocity(velocityLayers)
			velocities := make([]zones.MIDIData, 0, len(velocityLayers))
			for _, z := range velocityLayers {
				velocities = append(velocities, z.Velocity)
			}
			for j, r := range valueRanges(b.sfz.LayerAlgorithm, velocities) {
				z := velocityLayers[j]
				fileName := path.Join(sfzSampleDirectory, fmt.Sprintf("%03d-ch%d-n%d-v%d.%s", len(layers)+1, col.channel+1, col.note, z.Velocity, b.opts.Format.Extension()))
				group.Regions = append(group.Regions, &SfzRegion{
					Sample:       fileName,
					LowVelocity:  r[0],
					HighVelocity: r[1],
					Opcodes:      b.controlOpcodes(z, values),
				})
				layers = append(layers, &plannedLayer{
					instrument: i,
					layer:      len(group.Regions) - 1,
					fileName:   fileName,
					zone:       z,
				})
			}
		}
	}

	b.result.Instruments = len(instrument.Groups)
	b.result.Layers = len(layers)
	return instrument, layers
}

// distinctValues lists the set values of a control layer across the zones, ascending.
func distinctValues(list []*zones.Zone, c ControlLayer) []zones.MIDIData {
	seen := make(map[zones.MIDIData]bool)
	values := make([]zones.MIDIData, 0)
	for _, z := range list {
		v := c.value(z)
		if v == zones.MIDIDataNotSet || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		return values[i] < values[j]
	})
	return values
}

func (b *sfzBuild) controlOpcodes(z *zones.Zone, values map[zones.MIDIData][]zones.MIDIData) []string {
	opcodes := make([]string, 0)
	for _, c := range b.sfz.ControlLayers {
		v := c.value(z)
		if v == zones.MIDIDataNotSet {
			continue
		}
		layerValues := values[c.Control]
		i := sort.Search(len(layerValues), func(i int) bool {
			return layerValues[i] >= v
		})
		if !c.Crossfade {
			r := valueRanges(b.sfz.LayerAlgorithm, layerValues)[i]
			opcodes = append(opcodes, c.rangeOpcodes(r[0], r[1]))
			continue
		}

		low, high := 0, 0x7f
		if i > 0 {
			low = int(layerValues[i-1])
		}
		if i < len(layerValues)-1 {
			high = int(layerValues[i+1])
		}
		opcodes = append(opcodes, c.rangeOpcodes(low, high))
		if i > 0 {
			opcodes = append(opcodes, fmt.Sprintf("xfin_locc%d=%d xfin_hicc%d=%d", c.Control, low, c.Control, v))
		}
		if i < len(layerValues)-1 {
			opcodes = append(opcodes, fmt.Sprintf("xfout_locc%d=%d xfout_hicc%d=%d", c.Control, v, c.Control, high))
		}
	}
	return opcodes
}

func (b *sfzBuild) write(instrument *SfzInstrument) error {
	b.status("Writing SFZ file ...")
	f, err := os.Create(b.result.ArchivePath)
	if err != nil {
		return common.IOFailure("export sfz", b.result.ArchivePath, err)
	}
	if err = sfzTemplate.Execute(f, instrument); err != nil {
		_ = f.Close()
		_ = os.Remove(b.result.ArchivePath)
		return common.IOFailure("export sfz", b.result.ArchivePath, err)
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(b.result.ArchivePath)
		return common.IOFailure("export sfz", b.result.ArchivePath, err)
	}

	if stat, err := os.Stat(b.result.ArchivePath); err == nil {
		b.ctx.Log.Infof("Wrote %d groups (%d regions) to %s (%s)", b.result.Instruments, b.result.Layers, b.result.ArchivePath, humanize.Bytes(uint64(stat.Size())))
	}
	return nil
}
