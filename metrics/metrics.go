package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var FramesCopied = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "synthkit_frames_copied_total",
})
var ArchiveEntriesWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "synthkit_archive_entries_written_total",
}, []string{"kind"})
var ArchiveBytesWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "synthkit_archive_bytes_written_total",
}, []string{"kind"})
var ArchiveEntriesRead = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "synthkit_archive_entries_read_total",
})
var EffectJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "synthkit_effect_jobs_total",
}, []string{"result"})
var KitBuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "synthkit_kit_builds_total",
}, []string{"result"})
var SampleInfoCache = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "synthkit_sample_info_cache_total",
}, []string{"result"})
var SampleInfoCacheItems = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "synthkit_sample_info_cache_items",
})

func init() {
	prometheus.MustRegister(FramesCopied)
	prometheus.MustRegister(ArchiveEntriesWritten)
	prometheus.MustRegister(ArchiveBytesWritten)
	prometheus.MustRegister(ArchiveEntriesRead)
	prometheus.MustRegister(EffectJobs)
	prometheus.MustRegister(KitBuilds)
	prometheus.MustRegister(SampleInfoCache)
	prometheus.MustRegister(SampleInfoCacheItems)
}
