package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/olebedev/emitter"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/synthkit/archival"
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
	zonesPath := flag.String("zones", "zones.yaml", "The zone list to build the kit from")
	outDir := flag.String("out", ".", "The directory to write the kit archive into")
	kitName := flag.String("name", "", "The name of the kit")
	target := flag.String("target", "hydrogen", "The kit format to write: hydrogen or sfz")
	effectNames := flag.String("effects", "", "Comma-separated effects to render each zone through before packaging")
	watch := flag.Bool("watch", false, "Rebuild the kit whenever the configuration or zone list changes")
	versionFlag := flag.Bool("version", false, "Prints the version and exits")
	flag.Parse()

	if *versionFlag {
		version.Print("kitpack", false)
		return // exit 0
	}
	if *kitName == "" {
		logrus.Fatalf("A kit name is required. Try '%s -help' for information.", os.Args[0])
	}
	if *target != "hydrogen" && *target != "sfz" {
		logrus.Fatalf("Unknown target '%s'. Try '%s -help' for information.", *target, os.Args[0])
	}

	stop := runtime.RunStartupSequence("kitpack", *configPath)
	defer stop()

	build := func() {
		if err := buildKit(*zonesPath, *outDir, *kitName, *target, *effectNames); err != nil {
			if !*watch {
				runtime.ReportError(err)
			}
			logrus.Error("Kit build failed: ", err)
		}
	}
	build()
	if !*watch {
		return
	}

	logrus.Info("Starting config watcher...")
	watcher, err := config.Watch(build, *zonesPath)
	if err != nil {
		runtime.ReportError(err)
	}
	defer watcher.Close()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	<-signals
	logrus.Warn("Stop signal received")
}

func buildKit(zonesPath string, outDir string, kitName string, target string, effectNames string) error {
	cfg := config.Get()
	ctx := rcontext.Initial().LogWithFields(logrus.Fields{"kit": kitName})

	list, err := zones.LoadList(zonesPath)
	if err != nil {
		return err
	}
	ctx.Log.Infof("Loaded %d zones from %s", len(list), zonesPath)

	if effectNames != "" {
		if err = renderEffects(ctx, list, effectNames); err != nil {
			return err
		}
		defer func() {
			for _, z := range list {
				_ = z.WetSample.Release()
				z.WetSample = nil
			}
		}()
	}

	events := &emitter.Emitter{}
	progress := events.On(archival.TopicProgress)
	status := events.On(archival.TopicStatus)
	done := make(chan bool)
	go func() {
		for {
			select {
			case ev := <-progress:
				ctx.Log.Debugf("Progress: %.0f%%", ev.Args[0].(float32)*100)
			case ev := <-status:
				ctx.Log.Info(ev.Args[0].(string))
			case <-done:
				return
			}
		}
	}()
	defer close(done)

	var result *archival.BuildResult
	if target == "sfz" {
		opts, err := archival.SfzOptsFromConfig(*cfg, kitName)
		if err != nil {
			return err
		}
		result, err = archival.ExportSfz(ctx, list, outDir, opts, events)
		if err != nil {
			return err
		}
	} else {
		opts, err := archival.ExportOptsFromConfig(*cfg, kitName)
		if err != nil {
			return err
		}
		result, err = archival.ExportKit(ctx, list, outDir, opts, events)
		if err != nil {
			return err
		}
	}
	ctx.Log.Infof("Done! Kit written to '%s' with %d instruments, %d layers and %d warnings", result.ArchivePath, result.Instruments, result.Layers, len(result.Warnings))
	return nil
}

func renderEffects(ctx rcontext.RequestContext, list []*zones.Zone, effectNames string) error {
	cfg := config.Get()
	chain, err := effects.NewBuiltinRegistry(cfg.Effects).Chain(effectNames)
	if err != nil {
		return err
	}
	format, err := samples.ParseFormat(cfg.Kit.SampleFormat)
	if err != nil {
		return err
	}

	runner := effects.NewRunner(cfg.Effects.Workers, cfg.TempDirectory, format)
	defer runner.Close()

	errs := make(chan error, len(list))
	for _, z := range list {
		z := z
		go func() {
			if z.DrySample == nil {
				errs <- nil
				return
			}
			errs <- runner.Run(ctx, z, chain)
		}()
	}
	var firstErr error
	for range list {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
