package config

type MainConfig struct {
	Logging       LoggingConfig `yaml:"logging"`
	Metrics       MetricsConfig `yaml:"metrics"`
	Sentry        SentryConfig  `yaml:"sentry"`
	Kit           KitConfig     `yaml:"kit"`
	Sfz           SfzConfig     `yaml:"sfz"`
	Effects       EffectsConfig `yaml:"effects"`
	TempDirectory string        `yaml:"temporaryDirectory"`
}

type LoggingConfig struct {
	Directory string `yaml:"directory"`
	Colors    bool   `yaml:"colors"`
	Json      bool   `yaml:"json"`
	Level     string `yaml:"level"`
}

type MetricsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BindAddress string `yaml:"bindAddress"`
	Port        int    `yaml:"port"`
}

type SentryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Dsn         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
	Debug       bool   `yaml:"debug"`
}

type KitConfig struct {
	Author            string `yaml:"author"`
	Info              string `yaml:"info"`
	License           string `yaml:"license"`
	LayerAlgorithm    string `yaml:"layerAlgorithm"`
	SampleFormat      string `yaml:"sampleFormat"`
	SampleRate        uint32 `yaml:"sampleRate"`
	ConversionWorkers int    `yaml:"conversionWorkers"`
	MaxInstruments    int    `yaml:"maxInstruments"`
	MaxLayers         int    `yaml:"maxLayers"`
}

type SfzConfig struct {
	DrumKit        bool                 `yaml:"drumKit"`
	CrossfadeCurve string               `yaml:"crossfadeCurve"`
	ControlLayers  []ControlLayerConfig `yaml:"controlLayers"`
}

// ControlLayerConfig names a controller number, "aftertouch" or "channelPressure". An empty
// type picks switch for controllers 64 to 69 and continuous otherwise.
type ControlLayerConfig struct {
	Control   string `yaml:"control"`
	Type      string `yaml:"type"`
	Default   uint8  `yaml:"default"`
	Crossfade bool   `yaml:"crossfade"`
}

type EffectsConfig struct {
	Workers         int           `yaml:"workers"`
	ResampleQuality int           `yaml:"resampleQuality"`
	Trimmer         TrimmerConfig `yaml:"trimmer"`
	Fader           FaderConfig   `yaml:"fader"`
}

type TrimmerConfig struct {
	SampleFloor float32 `yaml:"sampleFloor"`
	TrimStart   bool    `yaml:"trimStart"`
	TrimEnd     bool    `yaml:"trimEnd"`
}

type FaderConfig struct {
	FadeInEnabled     bool    `yaml:"fadeInEnabled"`
	FadeInStartVolume float32 `yaml:"fadeInStartVolume"`
	FadeInTime        float32 `yaml:"fadeInTime"`
	FadeOutEnabled    bool    `yaml:"fadeOutEnabled"`
	FadeOutEndVolume  float32 `yaml:"fadeOutEndVolume"`
	FadeOutTime       float32 `yaml:"fadeOutTime"`
}
