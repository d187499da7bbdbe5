package archival

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/synthkit/archival/kitarchive"
	"github.com/t2bot/synthkit/common"
	"github.com/t2bot/synthkit/common/rcontext"
	"github.com/t2bot/synthkit/drumkit"
	"github.com/t2bot/synthkit/samples"
	"github.com/t2bot/synthkit/zones"
)

const extractChunkSize = 8192

// ImportKit turns a Hydrogen kit into zones, one per layer. path is either an unpacked kit
// directory or a kit archive; archives are extracted into extractDir, or into a new temporary
// directory when extractDir is empty. Extracted files are left in place for the zones'
// samples to refer to.
func ImportKit(ctx rcontext.RequestContext, path string, extractDir string) ([]*zones.Zone, error) {
	ctx = ctx.LogWithFields(logrus.Fields{"kit_import-path": path})

	info, err := os.Stat(path)
	if err != nil {
		return nil, common.IOFailure("stat kit", path, err)
	}
	kitDir := path
	if !info.IsDir() {
		if extractDir == "" {
			extractDir, err = os.MkdirTemp(ctx.Config.TempDirectory, "synthkit-kit-*")
			if err != nil {
				return nil, common.IOFailure("create extraction directory", ctx.Config.TempDirectory, err)
			}
		}
		if err = extractKit(ctx, path, extractDir); err != nil {
			return nil, err
		}
		kitDir = extractDir
	}

	confPath := filepath.Join(kitDir, kitarchive.ConfigurationName)
	f, err := os.Open(confPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(common.ErrNoConfiguration, path)
		}
		return nil, common.IOFailure("open configuration", confPath, err)
	}
	kit, err := drumkit.Decode(f)
	_ = f.Close()
	if err != nil {
		return nil, errors.Wrap(err, confPath)
	}
	ctx.Log.Infof("Importing kit %q with %d instruments", kit.Name, len(kit.InstrumentList.Instruments))

	list := make([]*zones.Zone, 0)
	note := zones.MIDIData(0)
	for i, inst := range kit.InstrumentList.Instruments {
		ictx := ctx.LogWithFields(logrus.Fields{"instrument": i + 1})
		if len(inst.Layers) == 0 {
			if z := importSample(ictx, kitDir, inst.Filename, note, 127); z != nil {
				list = append(list, z)
			}
		}
		for _, layer := range inst.Layers {
			velocity := layerVelocity(ictx, layer.Max)
			if z := importSample(ictx, kitDir, layer.Filename, note, velocity); z != nil {
				list = append(list, z)
			}
		}
		note = (note + 1) % 128
	}
	return list, nil
}

func extractKit(ctx rcontext.RequestContext, path string, dir string) error {
	r, err := kitarchive.NewReader(ctx, path)
	if err != nil {
		return err
	}
	defer r.Release()

	buf := make([]byte, extractChunkSize)
	for {
		h, ok, err := r.ReadHeader()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		name := filepath.Base(h.Path)
		if !h.IsFile() || name == "." || name == ".." || name == string(filepath.Separator) {
			if err = r.SkipData(); err != nil {
				return err
			}
			continue
		}

		target := filepath.Join(dir, name)
		if err = extractEntry(r, target, buf); err != nil {
			return err
		}
		if name != kitarchive.ConfigurationName {
			if mime, err := mimetype.DetectFile(target); err == nil && !strings.HasPrefix(mime.String(), "audio/") {
				ctx.Log.Warnf("%s does not look like audio (%s)", h.Path, mime.String())
			}
		}
	}
	return r.Close()
}

func extractEntry(r *kitarchive.Reader, target string, buf []byte) error {
	out, err := os.Create(target)
	if err != nil {
		return common.IOFailure("create", target, err)
	}
	for {
		n, err := r.ReadData(buf)
		if err != nil {
			_ = out.Close()
			return err
		}
		if n == 0 {
			break
		}
		if _, err = out.Write(buf[:n]); err != nil {
			_ = out.Close()
			return common.IOFailure("write", target, err)
		}
	}
	if err = out.Close(); err != nil {
		return common.IOFailure("close", target, err)
	}
	return nil
}

// layerVelocity maps a layer's upper bound in [0, 1] onto a MIDI velocity.
func layerVelocity(ctx rcontext.RequestContext, max *string) zones.MIDIData {
	if max == nil {
		ctx.Log.Warn("Layer has no 'max' element - assuming velocity of 127")
		return 127
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(*max), 32)
	switch {
	case err != nil:
		ctx.Log.Warnf("Layer has non-float 'max' value %q - assuming velocity of 127", *max)
		return 127
	case value > 1:
		ctx.Log.Warnf("Layer 'max' value %v is too large - assuming velocity of 127", value)
		return 127
	case value < 0:
		ctx.Log.Warnf("Layer 'max' value %v is too small - assuming velocity of 0", value)
		return 0
	}
	return zones.MIDIData(float32(value) * 127)
}

func importSample(ctx rcontext.RequestContext, kitDir string, filename *string, note zones.MIDIData, velocity zones.MIDIData) *zones.Zone {
	if filename == nil {
		return nil
	}
	p := filepath.Join(kitDir, filepath.Base(*filename))
	info, err := samples.ReadInfo(p)
	if err != nil {
		ctx.Log.Warn("Skipping sample: ", err)
		return nil
	}
	t := info.Time()
	if t > samples.MaxSampleTime || t < samples.MinSampleTime {
		err = errors.Wrap(common.ErrSampleTimeOutOfRange, fmt.Sprintf("%s: %v seconds, expected [%v, %v]", p, t, samples.MinSampleTime, samples.MaxSampleTime))
		ctx.Log.Warn("Skipping sample: ", err)
		return nil
	}

	z := zones.NewZone(0, note, velocity)
	z.SampleTime = t
	z.DrySample = samples.NewSample(p)
	return z
}
