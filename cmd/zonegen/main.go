package main

import (
	"flag"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/t2bot/synthkit/common/config"
	"github.com/t2bot/synthkit/common/runtime"
	"github.com/t2bot/synthkit/common/version"
	"github.com/t2bot/synthkit/samples"
	"github.com/t2bot/synthkit/zones"
)

func main() {
	defaults := zones.DefaultGeneratorOpts()
	configPath := flag.String("config", config.DefaultPath, "The path to the configuration")
	zonesPath := flag.String("zones", "zones.yaml", "The zone list to append the generated zones to. Created if missing.")
	channel := flag.Uint("channel", uint(defaults.Channel)+1, "The MIDI channel (1-16)")
	firstNote := flag.Uint("first", uint(defaults.FirstNote), "The lowest note")
	lastNote := flag.Uint("last", uint(defaults.LastNote), "The highest note")
	totalNotes := flag.Int("notes", defaults.TotalNotes, "How many notes to spread over the range")
	velocityLayers := flag.Int("velocities", defaults.VelocityLayers, "Velocity layers per note")
	aftertouchLayers := flag.Int("aftertouch", defaults.AftertouchLayers, "Aftertouch layers per velocity")
	sampleTime := flag.Float64("sampleTime", float64(defaults.SampleTime), "Seconds to record for each zone")
	releaseTime := flag.Float64("releaseTime", float64(defaults.ReleaseTime), "Seconds of release to record for each zone")
	versionFlag := flag.Bool("version", false, "Prints the version and exits")
	flag.Parse()

	if *versionFlag {
		version.Print("zonegen", false)
		return // exit 0
	}
	if *channel < 1 || *channel > 16 || *firstNote > 127 || *lastNote > 127 {
		logrus.Fatalf("Channel or note out of range. Try '%s -help' for information.", os.Args[0])
	}

	stop := runtime.RunStartupSequence("zonegen", *configPath)
	defer stop()

	opts := zones.GeneratorOpts{
		Channel:          zones.MIDIData(*channel - 1),
		FirstNote:        zones.MIDIData(*firstNote),
		LastNote:         zones.MIDIData(*lastNote),
		TotalNotes:       *totalNotes,
		VelocityLayers:   *velocityLayers,
		AftertouchLayers: *aftertouchLayers,
		SampleTime:       samples.SampleTime(*sampleTime),
		ReleaseTime:      samples.SampleTime(*releaseTime),
	}
	total, err := appendZones(*zonesPath, opts)
	if err != nil {
		runtime.ReportError(err)
	}
	logrus.Infof("Done! %s now holds %d zones", *zonesPath, total)
}

// appendZones generates zones and adds them to the end of the list at path, returning the
// new length of the list.
func appendZones(path string, opts zones.GeneratorOpts) (int, error) {
	generated, err := zones.Generate(opts)
	if err != nil {
		return 0, err
	}

	list := make([]*zones.Zone, 0)
	if _, err = os.Stat(path); err == nil {
		if list, err = zones.LoadList(path); err != nil {
			return 0, err
		}
	} else if !os.IsNotExist(err) {
		return 0, err
	}
	logrus.Infof("Generated %d zones after %d existing zones", len(generated), len(list))

	list = append(list, generated...)
	if err = zones.SaveList(path, list); err != nil {
		return 0, err
	}
	return len(list), nil
}
