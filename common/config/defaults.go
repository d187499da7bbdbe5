package config

const DefaultPath = "synthkit.yaml"

func NewDefaultMainConfig() MainConfig {
	return MainConfig{
		Logging: LoggingConfig{
			Directory: "-",
			Colors:    false,
			Json:      false,
			Level:     "info",
		},
		Metrics: MetricsConfig{
			Enabled:     false,
			BindAddress: "localhost",
			Port:        9000,
		},
		Sentry: SentryConfig{
			Enabled:     false,
			Dsn:         "not supplied",
			Environment: "",
			Debug:       false,
		},
		Kit: KitConfig{
			Author:            "",
			Info:              "",
			License:           "",
			LayerAlgorithm:    "linear",
			SampleFormat:      "wav24",
			SampleRate:        0,
			ConversionWorkers: 4,
			MaxInstruments:    1000,
			MaxLayers:         16,
		},
		Sfz: SfzConfig{
			DrumKit:        false,
			CrossfadeCurve: "none",
			ControlLayers:  []ControlLayerConfig{},
		},
		Effects: EffectsConfig{
			Workers:         2,
			ResampleQuality: 4,
			Trimmer: TrimmerConfig{
				SampleFloor: -70.0,
				TrimStart:   true,
				TrimEnd:     true,
			},
			Fader: FaderConfig{
				FadeInEnabled:     true,
				FadeInStartVolume: -64.0,
				FadeInTime:        0.01,
				FadeOutEnabled:    true,
				FadeOutEndVolume:  -64.0,
				FadeOutTime:       0.01,
			},
		},
		TempDirectory: "",
	}
}
