package drumkit

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/t2bot/synthkit/common"
)

// Kit is a Hydrogen drumkit_info document. Element order follows what Hydrogen writes.
type Kit struct {
	XMLName        xml.Name        `xml:"drumkit_info"`
	Name           string          `xml:"name"`
	Author         string          `xml:"author"`
	Info           string          `xml:"info"`
	License        string          `xml:"license"`
	InstrumentList *InstrumentList `xml:"instrumentList"`
}

type InstrumentList struct {
	Instruments []Instrument `xml:"instrument"`
}

type Instrument struct {
	ID                string  `xml:"id"`
	Name              string  `xml:"name"`
	Attack            string  `xml:"Attack"`
	Decay             string  `xml:"Decay"`
	Sustain           string  `xml:"Sustain"`
	Release           string  `xml:"Release"`
	FilterActive      string  `xml:"filterActive"`
	FilterCutoff      string  `xml:"filterCutoff"`
	FilterResonance   string  `xml:"filterResonance"`
	Gain              string  `xml:"gain"`
	IsMuted           string  `xml:"isMuted"`
	MuteGroup         string  `xml:"muteGroup"`
	PanL              string  `xml:"pan_L"`
	PanR              string  `xml:"pan_R"`
	RandomPitchFactor string  `xml:"randomPitchFactor"`
	IsStopNote        string  `xml:"isStopNote"`
	Filename          *string `xml:"filename,omitempty"`
	Layers            []Layer `xml:"layer"`
}

type Layer struct {
	Filename *string `xml:"filename"`
	Min      string  `xml:"min"`
	Max      *string `xml:"max"`
	Gain     string  `xml:"gain"`
	Pitch    string  `xml:"pitch"`
}

// NewInstrument returns an instrument with Hydrogen's neutral envelope, filter and pan
// settings. id counts from 0; the display name counts from 1.
func NewInstrument(id int) Instrument {
	return Instrument{
		ID:                strconv.Itoa(id),
		Name:              "Instrument #" + strconv.Itoa(id+1),
		Attack:            "0.0",
		Decay:             "0.0",
		Sustain:           "1.0",
		Release:           "1000.0",
		FilterActive:      "false",
		FilterCutoff:      "0.0",
		FilterResonance:   "0.0",
		Gain:              "1.0",
		IsMuted:           "false",
		MuteGroup:         "-1",
		PanL:              "1.0",
		PanR:              "1.0",
		RandomPitchFactor: "0.0",
		IsStopNote:        "false",
		Layers:            make([]Layer, 0),
	}
}

func NewLayer(filename string, min float32, max float32) Layer {
	maxText := FormatVelocity(max)
	return Layer{
		Filename: &filename,
		Min:      FormatVelocity(min),
		Max:      &maxText,
		Gain:     "1.0",
		Pitch:    "0.0",
	}
}

// FormatVelocity renders a velocity bound with up to six significant digits.
func FormatVelocity(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', 6, 32)
}

// Encode renders the kit as an indented XML document.
func Encode(kit *Kit) (string, error) {
	if kit.InstrumentList == nil {
		kit.InstrumentList = &InstrumentList{}
	}
	sb := &strings.Builder{}
	sb.WriteString(xml.Header)
	enc := xml.NewEncoder(sb)
	enc.Indent("", "    ")
	if err := enc.Encode(kit); err != nil {
		return "", errors.Wrap(err, "error encoding drumkit")
	}
	sb.WriteString("\n")
	return sb.String(), nil
}

func Decode(r io.Reader) (*Kit, error) {
	kit := &Kit{}
	if err := xml.NewDecoder(r).Decode(kit); err != nil {
		var unexpected xml.UnmarshalError
		if errors.As(err, &unexpected) && strings.Contains(err.Error(), "drumkit_info") {
			return nil, errors.Wrap(common.ErrNotDrumkit, err.Error())
		}
		return nil, errors.Wrap(err, "error parsing drumkit")
	}
	if kit.InstrumentList == nil {
		return nil, common.ErrNoConfiguration
	}
	return kit, nil
}
