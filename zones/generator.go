package zones

import (
	"github.com/t2bot/synthkit/common"
	"github.com/t2bot/synthkit/samples"
)

// GeneratorOpts describes an evenly spread zone grid. Channel is zero based.
type GeneratorOpts struct {
	Channel          MIDIData
	FirstNote        MIDIData
	LastNote         MIDIData
	TotalNotes       int
	VelocityLayers   int
	AftertouchLayers int
	SampleTime       samples.SampleTime
	ReleaseTime      samples.SampleTime
}

func DefaultGeneratorOpts() GeneratorOpts {
	return GeneratorOpts{
		Channel:          0,
		FirstNote:        0,
		LastNote:         0x7f,
		TotalNotes:       128,
		VelocityLayers:   8,
		AftertouchLayers: 0,
		SampleTime:       5.0,
		ReleaseTime:      1.0,
	}
}

// normalize checks the options and widens the note range when more notes are requested than
// it holds. The range grows upwards first, then downwards once the last note reaches 127.
func (o GeneratorOpts) normalize() (GeneratorOpts, error) {
	const op = "generate zones"
	switch {
	case o.Channel > 0x0f:
		return o, common.Precondition(op, "channel %d outside [0, 15]", o.Channel)
	case o.FirstNote > 0x7f || o.LastNote > 0x7f:
		return o, common.Precondition(op, "notes %d-%d outside [0, 127]", o.FirstNote, o.LastNote)
	case o.FirstNote > o.LastNote:
		return o, common.Precondition(op, "first note %d is above last note %d", o.FirstNote, o.LastNote)
	case o.TotalNotes < 1 || o.TotalNotes > 0x80:
		return o, common.Precondition(op, "total notes %d outside [1, 128]", o.TotalNotes)
	case o.VelocityLayers < 1 || o.VelocityLayers > 0x7f:
		return o, common.Precondition(op, "velocity layers %d outside [1, 127]", o.VelocityLayers)
	case o.AftertouchLayers < 0 || o.AftertouchLayers > 0x80:
		return o, common.Precondition(op, "aftertouch layers %d outside [0, 128]", o.AftertouchLayers)
	case o.SampleTime < 0 || o.ReleaseTime < 0:
		return o, common.Precondition(op, "negative sample or release time")
	}

	available := int(o.LastNote-o.FirstNote) + 1
	if o.TotalNotes > available {
		steps := o.TotalNotes - available
		upwards := 0x7f - int(o.LastNote)
		if upwards >= steps {
			o.LastNote += MIDIData(steps)
		} else {
			o.LastNote = 0x7f
			o.FirstNote -= MIDIData(steps - upwards)
		}
	}
	return o, nil
}

// ceilDiv is ceil(a / b) for non-negative a and positive b.
func ceilDiv(a int, b int) int {
	return (a + b - 1) / b
}

// Generate builds TotalNotes notes spread evenly over the note range, each with VelocityLayers
// velocities and, when requested, AftertouchLayers aftertouch values. Zones come back ordered by
// note then velocity; within a velocity the zone without aftertouch comes first.
func Generate(opts GeneratorOpts) ([]*Zone, error) {
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}

	difference := int(opts.LastNote - opts.FirstNote)
	list := make([]*Zone, 0, opts.TotalNotes*opts.VelocityLayers*(opts.AftertouchLayers+1))
	newZone := func(note MIDIData, velocity MIDIData) *Zone {
		z := NewZone(opts.Channel, note, velocity)
		z.SampleTime = opts.SampleTime
		z.ReleaseTime = opts.ReleaseTime
		return z
	}
	for n := 0; n < opts.TotalNotes; n++ {
		note := opts.FirstNote
		if opts.TotalNotes > 1 {
			note += MIDIData(ceilDiv(difference*n, opts.TotalNotes-1))
		}
		for v := 1; v <= opts.VelocityLayers; v++ {
			velocity := MIDIData(ceilDiv(0x7f*v, opts.VelocityLayers))
			list = append(list, newZone(note, velocity))
			for a := 1; a <= opts.AftertouchLayers; a++ {
				z := newZone(note, velocity)
				z.Aftertouch = MIDIData(ceilDiv(0x7f*a, opts.AftertouchLayers))
				list = append(list, z)
			}
		}
	}
	return list, nil
}
