package zones

import (
	"sort"

	"github.com/t2bot/synthkit/samples"
)

type MIDIData uint8

// MIDIDataNotSet marks an unset aftertouch, channel pressure or controller value.
const MIDIDataNotSet MIDIData = 0x80

const ControlCount = 0x80

// Zone is one sampled note: its MIDI trigger, timing, and the recorded (dry) and processed
// (wet) sample.
type Zone struct {
	Channel         MIDIData
	Note            MIDIData
	Velocity        MIDIData
	Aftertouch      MIDIData
	ChannelPressure MIDIData
	Controls        map[MIDIData]MIDIData
	ReleaseTime     samples.SampleTime
	SampleTime      samples.SampleTime

	DrySample *samples.Sample
	WetSample *samples.Sample
}

func NewZone(channel MIDIData, note MIDIData, velocity MIDIData) *Zone {
	return &Zone{
		Channel:         channel,
		Note:            note,
		Velocity:        velocity,
		Aftertouch:      MIDIDataNotSet,
		ChannelPressure: MIDIDataNotSet,
		Controls:        make(map[MIDIData]MIDIData),
	}
}

func (z *Zone) ControlValue(control MIDIData) MIDIData {
	if v, ok := z.Controls[control]; ok {
		return v
	}
	return MIDIDataNotSet
}

// Sample returns the wet sample when effects have produced one, otherwise the dry sample.
func (z *Zone) Sample() *samples.Sample {
	if z.WetSample != nil {
		return z.WetSample
	}
	return z.DrySample
}

func SortByVelocity(list []*Zone) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Velocity < list[j].Velocity
	})
}
