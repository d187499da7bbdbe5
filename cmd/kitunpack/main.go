package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/t2bot/synthkit/archival"
	"github.com/t2bot/synthkit/common/config"
	"github.com/t2bot/synthkit/common/logging"
	"github.com/t2bot/synthkit/common/rcontext"
	"github.com/t2bot/synthkit/common/runtime"
	"github.com/t2bot/synthkit/common/version"
	"github.com/t2bot/synthkit/samples"
	"github.com/t2bot/synthkit/util/util_audio"
	"github.com/t2bot/synthkit/zones"
)

const overviewWidth = 32

func main() {
	configPath := flag.String("config", config.DefaultPath, "The path to the configuration")
	kitPath := flag.String("kit", "", "The kit archive or kit directory to import")
	extractDir := flag.String("extract", "", "Where to extract archived kits. Defaults to a new temporary directory.")
	match := flag.String("match", "*", "Only list zones whose sample file name matches this pattern")
	savePath := flag.String("save", "", "Write the listed zones to this zone list")
	versionFlag := flag.Bool("version", false, "Prints the version and exits")
	flag.Parse()

	if *versionFlag {
		version.Print("kitunpack", false)
		return // exit 0
	}
	if *kitPath == "" {
		logrus.Fatalf("A kit is required. Try '%s -help' for information.", os.Args[0])
	}

	stop := runtime.RunStartupSequence("kitunpack", *configPath)
	defer stop()

	if *extractDir != "" {
		if err := os.MkdirAll(*extractDir, 0755); err != nil {
			runtime.ReportError(err)
		}
	}

	ctx := rcontext.Initial()
	list, err := archival.ImportKit(ctx, *kitPath, *extractDir)
	if err != nil {
		runtime.ReportError(err)
	}

	list = zones.MatchSample(list, *match)

	out := tabwriter.NewWriter(&logging.EntryWriter{Entry: ctx.Log, Level: logrus.InfoLevel}, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(out, "NOTE\tVELOCITY\tTIME\tSAMPLE\tOVERVIEW")
	for _, z := range list {
		_, _ = fmt.Fprintf(out, "%d\t%d\t%.3fs\t%s\t%s\n", z.Note, z.Velocity, z.SampleTime, z.DrySample.Path(), overview(z.DrySample))
	}
	_ = out.Flush()

	if *savePath != "" {
		if err = zones.SaveList(*savePath, list); err != nil {
			runtime.ReportError(err)
		}
		logrus.Infof("Saved zone list to %s", *savePath)
	}
	logrus.Infof("Done! Listed %d zones", len(list))
}

func overview(sample *samples.Sample) string {
	in, err := samples.OpenInput(sample)
	if err != nil {
		logrus.Warn("Cannot open sample for overview: ", err)
		return ""
	}
	stream := samples.NewBeepStream(in)
	defer stream.Close()

	peaks, err := util_audio.Overview(stream, overviewWidth)
	if err != nil {
		logrus.Warn("Cannot build overview: ", err)
		return ""
	}
	return util_audio.Sparkline(peaks)
}
