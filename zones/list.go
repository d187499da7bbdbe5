package zones

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/t2bot/synthkit/samples"
	"gopkg.in/yaml.v3"
)

type listFile struct {
	Zones []zoneRecord `yaml:"zones"`
}

type zoneRecord struct {
	Channel         uint8           `yaml:"channel"`
	Note            uint8           `yaml:"note"`
	Velocity        *uint8          `yaml:"velocity"`
	Aftertouch      *uint8          `yaml:"aftertouch,omitempty"`
	ChannelPressure *uint8          `yaml:"channelPressure,omitempty"`
	Controls        map[uint8]uint8 `yaml:"controls,omitempty"`
	ReleaseTime     float32         `yaml:"releaseTime"`
	SampleTime      float32         `yaml:"sampleTime"`
	DrySample       string          `yaml:"drySample,omitempty"`
	WetSample       string          `yaml:"wetSample,omitempty"`
}

// LoadList reads a YAML zone list. Relative sample paths are resolved against the list's
// directory.
func LoadList(path string) ([]*Zone, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lf := listFile{}
	if err = yaml.Unmarshal(b, &lf); err != nil {
		return nil, errors.Wrap(err, "error parsing zone list "+path)
	}

	base := filepath.Dir(path)
	resolve := func(p string) *samples.Sample {
		if p == "" {
			return nil
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		return samples.NewSample(p)
	}

	list := make([]*Zone, 0, len(lf.Zones))
	for i, rec := range lf.Zones {
		velocity := uint8(0x7f)
		if rec.Velocity != nil {
			velocity = *rec.Velocity
		}
		z := NewZone(MIDIData(rec.Channel), MIDIData(rec.Note), MIDIData(velocity))
		if rec.Aftertouch != nil {
			z.Aftertouch = MIDIData(*rec.Aftertouch)
		}
		if rec.ChannelPressure != nil {
			z.ChannelPressure = MIDIData(*rec.ChannelPressure)
		}
		for c, v := range rec.Controls {
			z.Controls[MIDIData(c)] = MIDIData(v)
		}
		z.ReleaseTime = samples.SampleTime(rec.ReleaseTime)
		z.SampleTime = samples.SampleTime(rec.SampleTime)
		z.DrySample = resolve(rec.DrySample)
		z.WetSample = resolve(rec.WetSample)

		if err = validate(z); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("zone %d", i+1))
		}
		list = append(list, z)
	}
	return list, nil
}

// SaveList writes the zones as a YAML zone list. Sample paths under the list's directory are
// written relative to it.
func SaveList(path string, list []*Zone) error {
	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return err
	}
	relative := func(s *samples.Sample) string {
		if s == nil {
			return ""
		}
		p, err := filepath.Abs(s.Path())
		if err != nil {
			return s.Path()
		}
		if rel, err := filepath.Rel(base, p); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return rel
		}
		return p
	}
	optional := func(v MIDIData) *uint8 {
		if v == MIDIDataNotSet {
			return nil
		}
		b := uint8(v)
		return &b
	}

	lf := listFile{Zones: make([]zoneRecord, 0, len(list))}
	for i, z := range list {
		if err = validate(z); err != nil {
			return errors.Wrap(err, fmt.Sprintf("zone %d", i+1))
		}
		velocity := uint8(z.Velocity)
		rec := zoneRecord{
			Channel:         uint8(z.Channel),
			Note:            uint8(z.Note),
			Velocity:        &velocity,
			Aftertouch:      optional(z.Aftertouch),
			ChannelPressure: optional(z.ChannelPressure),
			ReleaseTime:     float32(z.ReleaseTime),
			SampleTime:      float32(z.SampleTime),
			DrySample:       relative(z.DrySample),
			WetSample:       relative(z.WetSample),
		}
		if len(z.Controls) > 0 {
			rec.Controls = make(map[uint8]uint8, len(z.Controls))
			for c, v := range z.Controls {
				rec.Controls[uint8(c)] = uint8(v)
			}
		}
		lf.Zones = append(lf.Zones, rec)
	}

	b, err := yaml.Marshal(lf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func validate(z *Zone) error {
	if z.Channel > 0x0f {
		return fmt.Errorf("channel %d outside [0, 15]", z.Channel)
	}
	for name, v := range map[string]MIDIData{"note": z.Note, "velocity": z.Velocity} {
		if v > 0x7f {
			return fmt.Errorf("%s %d outside [0, 127]", name, v)
		}
	}
	for name, v := range map[string]MIDIData{"aftertouch": z.Aftertouch, "channel pressure": z.ChannelPressure} {
		if v > 0x7f && v != MIDIDataNotSet {
			return fmt.Errorf("%s %d outside [0, 127]", name, v)
		}
	}
	for c, v := range z.Controls {
		if c >= ControlCount || v > 0x7f {
			return fmt.Errorf("control %d = %d outside [0, 127]", c, v)
		}
	}
	return nil
}
