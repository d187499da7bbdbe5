package metrics

import (
	"net/http"
	"sync"
)

var beforeMetricsCalledFns = make([]func(), 0)
var listenersLock = &sync.Mutex{}

// OnBeforeMetricsRequested registers a function that refreshes gauges right before a scrape.
func OnBeforeMetricsRequested(fn func()) {
	listenersLock.Lock()
	defer listenersLock.Unlock()
	beforeMetricsCalledFns = append(beforeMetricsCalledFns, fn)
}

func runBeforeMetrics() {
	listenersLock.Lock()
	fns := make([]func(), len(beforeMetricsCalledFns))
	copy(fns, beforeMetricsCalledFns)
	listenersLock.Unlock()

	for _, fn := range fns {
		fn()
	}
}

type refreshingHandler struct {
	next http.Handler
}

func (h refreshingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	runBeforeMetrics()
	h.next.ServeHTTP(w, r)
}
