package main

import (
	"flag"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/t2bot/synthkit/common/config"
	"github.com/t2bot/synthkit/common/rcontext"
	"github.com/t2bot/synthkit/common/runtime"
	"github.com/t2bot/synthkit/common/version"
	"github.com/t2bot/synthkit/effects"
	"github.com/t2bot/synthkit/samples"
	"github.com/t2bot/synthkit/zones"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "The path to the configuration")
	inPath := flag.String("in", "", "The sample to process")
	outPath := flag.String("out", "", "Where to write the processed sample")
	effectNames := flag.String("effects", "trim,fade", "Comma-separated effects to apply, in order")
	versionFlag := flag.Bool("version", false, "Prints the version and exits")
	flag.Parse()

	if *versionFlag {
		version.Print("samplefx", false)
		return // exit 0
	}
	if *inPath == "" || *outPath == "" {
		logrus.Fatalf("Both -in and -out are required. Try '%s -help' for information.", os.Args[0])
	}

	stop := runtime.RunStartupSequence("samplefx", *configPath)
	defer stop()

	ctx := rcontext.Initial().LogWithFields(logrus.Fields{"sample": *inPath})
	info, err := process(ctx, config.Get(), *inPath, *outPath, *effectNames)
	if err != nil {
		runtime.ReportError(err)
	}
	logrus.Infof("Done! Wrote %d frames (%.3fs) to '%s'", info.Frames, info.Time(), *outPath)
}

// process renders inPath through the named effects into outPath. Every temporary sample is
// removed before it returns, including on failure.
func process(ctx rcontext.RequestContext, cfg *config.MainConfig, inPath string, outPath string, effectNames string) (samples.Info, error) {
	chain, err := effects.NewBuiltinRegistry(cfg.Effects).Chain(effectNames)
	if err != nil {
		return samples.Info{}, err
	}
	format, err := samples.ParseFormat(cfg.Kit.SampleFormat)
	if err != nil {
		return samples.Info{}, err
	}

	runner := effects.NewRunner(1, cfg.TempDirectory, format)
	defer runner.Close()

	zone := zones.NewZone(0, 0, 127)
	zone.DrySample = samples.NewSample(inPath)
	if err = runner.Run(ctx, zone, chain); err != nil {
		return samples.Info{}, err
	}
	defer func() {
		if rerr := zone.WetSample.Release(); rerr != nil {
			ctx.Log.Warn("Error removing processed sample: ", rerr)
		}
	}()

	if err = zone.WetSample.CopyTo(samples.NewSample(outPath)); err != nil {
		return samples.Info{}, err
	}
	return samples.ReadInfo(outPath)
}
