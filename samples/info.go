package samples

import (
	"fmt"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/t2bot/synthkit/common"
	"github.com/t2bot/synthkit/metrics"
)

type Info struct {
	Channels   ChannelCount
	SampleRate SampleRate
	Frames     FrameCount
	BitDepth   int
	Float      bool
}

func (i Info) Time() SampleTime {
	return TimeOf(i.SampleRate, i.Frames)
}

func (i Info) blockAlign() int {
	return int(i.Channels) * (i.BitDepth / 8)
}

var infoCache = cache.New(10*time.Minute, 20*time.Minute)

func init() {
	metrics.OnBeforeMetricsRequested(func() {
		metrics.SampleInfoCacheItems.Set(float64(infoCache.ItemCount()))
	})
}

// ReadInfo reports the format and length of the WAV file at path. Results are cached until
// the file's size or modification time changes.
func ReadInfo(path string) (Info, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return Info{}, common.IOFailure("stat", path, err)
	}
	key := fmt.Sprintf("%s|%d|%d", path, stat.Size(), stat.ModTime().UnixNano())
	if cached, ok := infoCache.Get(key); ok {
		metrics.SampleInfoCache.WithLabelValues("hit").Inc()
		return cached.(Info), nil
	}
	metrics.SampleInfoCache.WithLabelValues("miss").Inc()

	f, info, _, err := openWav(path)
	if err != nil {
		return Info{}, err
	}
	if err = f.Close(); err != nil {
		return Info{}, common.IOFailure("close", path, err)
	}

	infoCache.Set(key, info, cache.DefaultExpiration)
	return info, nil
}
