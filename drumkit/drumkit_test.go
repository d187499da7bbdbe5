package drumkit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t2bot/synthkit/common"
)

func TestEncodeOrder(t *testing.T) {
	inst := NewInstrument(0)
	inst.Layers = append(inst.Layers, NewLayer("instrument1-layer1.wav", 0, 0.5), NewLayer("instrument1-layer2.wav", 0.5, 1))
	kit := &Kit{
		Name:           "kit1",
		Author:         "someone",
		InstrumentList: &InstrumentList{Instruments: []Instrument{inst}},
	}

	text, err := Encode(kit)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "<?xml"))

	order := []string{
		"<drumkit_info>", "<name>kit1</name>", "<author>someone</author>", "<info></info>", "<license></license>",
		"<instrumentList>", "<instrument>", "<id>0</id>", "<name>Instrument #1</name>", "<Attack>0.0</Attack>",
		"<Release>1000.0</Release>", "<muteGroup>-1</muteGroup>", "<isStopNote>false</isStopNote>",
		"<layer>", "<filename>instrument1-layer1.wav</filename>", "<min>0</min>", "<max>0.5</max>",
		"<gain>1.0</gain>", "<pitch>0.0</pitch>", "<filename>instrument1-layer2.wav</filename>", "<max>1</max>",
	}
	pos := 0
	for _, s := range order {
		idx := strings.Index(text[pos:], s)
		require.GreaterOrEqual(t, idx, 0, "missing or out of order: %s", s)
		pos += idx + len(s)
	}
	assert.NotContains(t, text, "<instrument>\n        <filename>")
}

func TestFormatVelocity(t *testing.T) {
	assert.Equal(t, "0", FormatVelocity(0))
	assert.Equal(t, "1", FormatVelocity(1))
	assert.Equal(t, "0.629921", FormatVelocity(80.0/127.0))
}

func TestDecode(t *testing.T) {
	kit, err := Decode(strings.NewReader(`<?xml version="1.0"?>
<drumkit_info>
  <name>Imported</name>
  <instrumentList>
    <instrument>
      <id>0</id>
      <filename>single.wav</filename>
    </instrument>
    <instrument>
      <id>1</id>
      <layer><filename>a.wav</filename><min>0</min><max>0.5</max></layer>
      <layer><filename>b.wav</filename><min>0.5</min></layer>
    </instrument>
  </instrumentList>
</drumkit_info>`))
	require.NoError(t, err)
	assert.Equal(t, "Imported", kit.Name)
	require.Len(t, kit.InstrumentList.Instruments, 2)

	first := kit.InstrumentList.Instruments[0]
	require.NotNil(t, first.Filename)
	assert.Equal(t, "single.wav", *first.Filename)
	assert.Empty(t, first.Layers)

	second := kit.InstrumentList.Instruments[1]
	require.Len(t, second.Layers, 2)
	assert.Equal(t, "0.5", *second.Layers[0].Max)
	assert.Nil(t, second.Layers[1].Max)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(strings.NewReader(`<song><name>x</name></song>`))
	assert.ErrorIs(t, err, common.ErrNotDrumkit)

	_, err = Decode(strings.NewReader(`<drumkit_info><name>x</name></drumkit_info>`))
	assert.ErrorIs(t, err, common.ErrNoConfiguration)

	_, err = Decode(strings.NewReader(`<drumkit_info><name>`))
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	inst := NewInstrument(3)
	inst.Layers = append(inst.Layers, NewLayer("x.wav", 0, 1))
	text, err := Encode(&Kit{Name: "rt", InstrumentList: &InstrumentList{Instruments: []Instrument{inst}}})
	require.NoError(t, err)

	kit, err := Decode(strings.NewReader(text))
	require.NoError(t, err)
	require.Len(t, kit.InstrumentList.Instruments, 1)
	assert.Equal(t, "Instrument #4", kit.InstrumentList.Instruments[0].Name)
	assert.Equal(t, "x.wav", *kit.InstrumentList.Instruments[0].Layers[0].Filename)
}
