package samples

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/t2bot/synthkit/common"
)

// Format is an output encoding. Every format is little-endian PCM inside a WAV container:
// unsigned 8-bit, signed 16/24/32-bit integers, or 32-bit IEEE float.
type Format int

const (
	FormatWAV16 Format = iota
	FormatWAV24
	FormatWAV32
	FormatWAV8
	FormatWAVFloat
)

const DefaultFormat = FormatWAV24

func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "wav8":
		return FormatWAV8, nil
	case "wav16":
		return FormatWAV16, nil
	case "wav24", "":
		return FormatWAV24, nil
	case "wav32":
		return FormatWAV32, nil
	case "wavfloat", "wav32f":
		return FormatWAVFloat, nil
	}
	return 0, errors.Wrap(common.ErrUnsupportedFormat, name)
}

func (f Format) BitDepth() int {
	switch f {
	case FormatWAV8:
		return 8
	case FormatWAV16:
		return 16
	case FormatWAV32, FormatWAVFloat:
		return 32
	default:
		return 24
	}
}

func (f Format) Float() bool {
	return f == FormatWAVFloat
}

func (f Format) Extension() string {
	return "wav"
}

func (f Format) String() string {
	switch f {
	case FormatWAV8:
		return "wav8"
	case FormatWAV16:
		return "wav16"
	case FormatWAV32:
		return "wav32"
	case FormatWAVFloat:
		return "wavfloat"
	default:
		return "wav24"
	}
}
