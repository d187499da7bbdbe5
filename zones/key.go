package zones

import (
	"sort"
)

// Key groups zones that should become layers of one instrument: same channel, note,
// aftertouch and controller values. Keys are comparable and can be used as map keys.
type Key struct {
	Channel    MIDIData
	Note       MIDIData
	Aftertouch MIDIData
	Controls   [ControlCount]MIDIData
}

func KeyOf(z *Zone) Key {
	k := Key{
		Channel:    z.Channel,
		Note:       z.Note,
		Aftertouch: z.Aftertouch,
	}
	for i := range k.Controls {
		k.Controls[i] = z.ControlValue(MIDIData(i))
	}
	return k
}

// controlBits has one bit per set controller, controller 0 in the most significant bit of
// the first word.
func (k Key) controlBits() (uint64, uint64) {
	var hi, lo uint64
	for i, v := range k.Controls {
		if v == MIDIDataNotSet {
			continue
		}
		if i < 64 {
			hi |= 1 << (63 - uint(i))
		} else {
			lo |= 1 << (127 - uint(i))
		}
	}
	return hi, lo
}

// Less orders keys by channel, note and aftertouch (unset first). Keys without controllers
// sort before keys with them, then keys whose lowest set controller is lower come first,
// then controller values decide.
func (k Key) Less(o Key) bool {
	if k.Channel != o.Channel {
		return k.Channel < o.Channel
	}
	if k.Note != o.Note {
		return k.Note < o.Note
	}
	if k.Aftertouch != o.Aftertouch {
		if k.Aftertouch == MIDIDataNotSet {
			return true
		}
		if o.Aftertouch == MIDIDataNotSet {
			return false
		}
		return k.Aftertouch < o.Aftertouch
	}

	kHi, kLo := k.controlBits()
	oHi, oLo := o.controlBits()
	kAny := kHi != 0 || kLo != 0
	oAny := oHi != 0 || oLo != 0
	switch {
	case !kAny && oAny:
		return true
	case kAny && !oAny:
		return false
	case kHi != oHi:
		return kHi > oHi
	case kLo != oLo:
		return kLo > oLo
	}
	for i := range k.Controls {
		if k.Controls[i] != o.Controls[i] {
			return k.Controls[i] < o.Controls[i]
		}
	}
	return false
}

// Group buckets zones by key. Keys come back sorted; each group keeps the zones' input order.
func Group(list []*Zone) ([]Key, map[Key][]*Zone) {
	groups := make(map[Key][]*Zone)
	keys := make([]Key, 0)
	for _, z := range list {
		k := KeyOf(z)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], z)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Less(keys[j])
	})
	return keys, groups
}
