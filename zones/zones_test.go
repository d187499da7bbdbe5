package zones

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t2bot/synthkit/common"
	"github.com/t2bot/synthkit/samples"
)

func TestSampleOrder(t *testing.T) {
	z := NewZone(0, 36, 100)
	assert.Nil(t, z.Sample())
	z.DrySample = samples.NewSample("dry.wav")
	assert.Equal(t, "dry.wav", z.Sample().Path())
	z.WetSample = samples.NewSample("wet.wav")
	assert.Equal(t, "wet.wav", z.Sample().Path())
}

func TestSortByVelocityIsStable(t *testing.T) {
	a := NewZone(0, 36, 100)
	b := NewZone(0, 36, 20)
	c := NewZone(0, 36, 100)
	d := NewZone(0, 36, 60)
	list := []*Zone{a, b, c, d}
	SortByVelocity(list)
	assert.Equal(t, []*Zone{b, d, a, c}, list)
}

func TestKeyGroupsLayers(t *testing.T) {
	soft := NewZone(0, 36, 30)
	loud := NewZone(0, 36, 120)
	snare := NewZone(0, 38, 100)
	withControl := NewZone(0, 36, 100)
	withControl.Controls[7] = 64

	keys, groups := Group([]*Zone{loud, snare, withControl, soft})
	require.Len(t, keys, 3)
	assert.Equal(t, MIDIData(36), keys[0].Note)
	assert.Equal(t, MIDIDataNotSet, keys[0].Controls[7])
	assert.Equal(t, MIDIData(64), keys[1].Controls[7])
	assert.Equal(t, MIDIData(38), keys[2].Note)
	assert.Equal(t, []*Zone{loud, soft}, groups[keys[0]])
}

func TestKeyLess(t *testing.T) {
	base := KeyOf(NewZone(0, 36, 100))

	otherChannel := base
	otherChannel.Channel = 1
	assert.True(t, base.Less(otherChannel))
	assert.False(t, otherChannel.Less(base))

	withAftertouch := base
	withAftertouch.Aftertouch = 10
	assert.True(t, base.Less(withAftertouch), "unset aftertouch sorts first")

	lowController := base
	lowController.Controls[1] = 100
	highController := base
	highController.Controls[100] = 0
	assert.True(t, base.Less(lowController), "no controllers sorts first")
	assert.True(t, lowController.Less(highController), "lower controller number sorts first")
	assert.False(t, highController.Less(lowController))

	quiet := base
	quiet.Controls[1] = 10
	assert.True(t, quiet.Less(lowController), "controller values decide last")
	assert.False(t, base.Less(base))
}

func TestLoadList(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "zones.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`zones:
  - note: 36
    velocity: 40
    drySample: kick_soft.wav
  - note: 36
    velocity: 110
    aftertouch: 5
    controls:
      7: 100
    sampleTime: 1.5
    drySample: /abs/kick_loud.wav
    wetSample: kick_loud_fx.wav
  - channel: 9
    note: 38
`), 0644))

	list, err := LoadList(p)
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, MIDIData(40), list[0].Velocity)
	assert.Equal(t, filepath.Join(dir, "kick_soft.wav"), list[0].DrySample.Path())
	assert.Equal(t, MIDIDataNotSet, list[0].Aftertouch)
	assert.Nil(t, list[0].WetSample)

	assert.Equal(t, MIDIData(5), list[1].Aftertouch)
	assert.Equal(t, MIDIData(100), list[1].ControlValue(7))
	assert.Equal(t, MIDIDataNotSet, list[1].ControlValue(8))
	assert.Equal(t, "/abs/kick_loud.wav", list[1].DrySample.Path())
	assert.Equal(t, filepath.Join(dir, "kick_loud_fx.wav"), list[1].Sample().Path())
	assert.Equal(t, samples.SampleTime(1.5), list[1].SampleTime)

	assert.Equal(t, MIDIData(127), list[2].Velocity)
	assert.Nil(t, list[2].Sample())
}

func TestLoadListRejectsOutOfRange(t *testing.T) {
	p := filepath.Join(t.TempDir(), "zones.yaml")
	require.NoError(t, os.WriteFile(p, []byte("zones:\n  - note: 200\n"), 0644))
	_, err := LoadList(p)
	assert.Error(t, err)
}

func TestMatchSample(t *testing.T) {
	kick := NewZone(0, 36, 100)
	kick.DrySample = samples.NewSample("/kit/kick_soft.wav")
	wetKick := NewZone(0, 36, 120)
	wetKick.DrySample = samples.NewSample("/kit/kick_loud.wav")
	wetKick.WetSample = samples.NewSample("/tmp/fx-1.wav")
	silent := NewZone(0, 38, 100)
	list := []*Zone{kick, wetKick, silent}

	assert.Equal(t, list, MatchSample(list, ""))
	assert.Equal(t, list, MatchSample(list, "*"))
	assert.Equal(t, []*Zone{kick}, MatchSample(list, "kick_*"))
	assert.Equal(t, []*Zone{wetKick}, MatchSample(list, "fx-*.wav"))
	assert.Empty(t, MatchSample(list, "snare*"))
}

func TestSaveListRoundTrip(t *testing.T) {
	dir := t.TempDir()
	soft := NewZone(0, 36, 40)
	soft.DrySample = samples.NewSample(filepath.Join(dir, "takes", "kick_soft.wav"))
	soft.Aftertouch = 5
	soft.Controls[7] = 100
	soft.SampleTime = 1.5
	soft.ReleaseTime = 0.25
	loud := NewZone(3, 38, 127)
	loud.WetSample = samples.NewSample("/abs/snare_fx.wav")
	loud.ChannelPressure = 20

	p := filepath.Join(dir, "zones.yaml")
	require.NoError(t, SaveList(p, []*Zone{soft, loud}))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), "drySample: "+filepath.Join("takes", "kick_soft.wav"))
	assert.Contains(t, string(b), "wetSample: /abs/snare_fx.wav")

	list, err := LoadList(p)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, soft.DrySample.Path(), list[0].DrySample.Path())
	assert.Equal(t, MIDIData(5), list[0].Aftertouch)
	assert.Equal(t, MIDIDataNotSet, list[0].ChannelPressure)
	assert.Equal(t, MIDIData(100), list[0].ControlValue(7))
	assert.Equal(t, samples.SampleTime(1.5), list[0].SampleTime)
	assert.Equal(t, samples.SampleTime(0.25), list[0].ReleaseTime)
	assert.Equal(t, MIDIData(3), list[1].Channel)
	assert.Equal(t, MIDIData(127), list[1].Velocity)
	assert.Equal(t, MIDIDataNotSet, list[1].Aftertouch)
	assert.Equal(t, MIDIData(20), list[1].ChannelPressure)
	assert.Nil(t, list[1].DrySample)
	assert.Equal(t, "/abs/snare_fx.wav", list[1].WetSample.Path())
}

func TestSaveListRejectsOutOfRange(t *testing.T) {
	p := filepath.Join(t.TempDir(), "zones.yaml")
	assert.Error(t, SaveList(p, []*Zone{NewZone(16, 36, 100)}))
	_, err := os.Stat(p)
	assert.True(t, os.IsNotExist(err))
}

func TestGenerateDefaults(t *testing.T) {
	list, err := Generate(DefaultGeneratorOpts())
	require.NoError(t, err)
	require.Len(t, list, 128*8)

	velocities := make([]MIDIData, 0, 8)
	for _, z := range list[:8] {
		assert.Equal(t, MIDIData(0), z.Note)
		assert.Equal(t, MIDIData(0), z.Channel)
		assert.Equal(t, MIDIDataNotSet, z.Aftertouch)
		assert.Equal(t, samples.SampleTime(5), z.SampleTime)
		assert.Equal(t, samples.SampleTime(1), z.ReleaseTime)
		assert.Nil(t, z.Sample())
		velocities = append(velocities, z.Velocity)
	}
	assert.Equal(t, []MIDIData{16, 32, 48, 64, 80, 96, 112, 127}, velocities)
	for i := 0; i < 128; i++ {
		assert.Equal(t, MIDIData(i), list[i*8].Note)
	}
}

func TestGenerateSpreadsNotes(t *testing.T) {
	cases := []struct {
		first, last MIDIData
		total       int
		expected    []MIDIData
	}{
		{36, 48, 4, []MIDIData{36, 40, 44, 48}},
		{0, 10, 4, []MIDIData{0, 4, 7, 10}},
		{60, 72, 1, []MIDIData{60}},
		{120, 125, 10, []MIDIData{118, 119, 120, 121, 122, 123, 124, 125, 126, 127}},
	}
	for _, c := range cases {
		opts := DefaultGeneratorOpts()
		opts.FirstNote = c.first
		opts.LastNote = c.last
		opts.TotalNotes = c.total
		opts.VelocityLayers = 1
		list, err := Generate(opts)
		require.NoError(t, err)
		notes := make([]MIDIData, 0, len(list))
		for _, z := range list {
			assert.Equal(t, MIDIData(127), z.Velocity)
			notes = append(notes, z.Note)
		}
		assert.Equal(t, c.expected, notes, "%d-%d over %d notes", c.first, c.last, c.total)
	}
}

func TestGenerateAftertouchLayers(t *testing.T) {
	opts := DefaultGeneratorOpts()
	opts.Channel = 9
	opts.FirstNote = 60
	opts.LastNote = 60
	opts.TotalNotes = 1
	opts.VelocityLayers = 2
	opts.AftertouchLayers = 2
	list, err := Generate(opts)
	require.NoError(t, err)

	type trigger struct{ velocity, aftertouch MIDIData }
	triggers := make([]trigger, 0, len(list))
	for _, z := range list {
		assert.Equal(t, MIDIData(9), z.Channel)
		assert.Equal(t, MIDIData(60), z.Note)
		triggers = append(triggers, trigger{z.Velocity, z.Aftertouch})
	}
	assert.Equal(t, []trigger{
		{64, MIDIDataNotSet}, {64, 64}, {64, 127},
		{127, MIDIDataNotSet}, {127, 64}, {127, 127},
	}, triggers)
}

func TestGenerateRejectsBadOptions(t *testing.T) {
	mutations := map[string]func(*GeneratorOpts){
		"channel":     func(o *GeneratorOpts) { o.Channel = 16 },
		"note order":  func(o *GeneratorOpts) { o.FirstNote, o.LastNote = 60, 40 },
		"note range":  func(o *GeneratorOpts) { o.LastNote = 128 },
		"no notes":    func(o *GeneratorOpts) { o.TotalNotes = 0 },
		"no layers":   func(o *GeneratorOpts) { o.VelocityLayers = 0 },
		"aftertouch":  func(o *GeneratorOpts) { o.AftertouchLayers = 129 },
		"sample time": func(o *GeneratorOpts) { o.SampleTime = -1 },
	}
	for name, mutate := range mutations {
		opts := DefaultGeneratorOpts()
		mutate(&opts)
		_, err := Generate(opts)
		assert.True(t, errors.Is(err, common.ErrPreconditionViolation), name)
	}
}
