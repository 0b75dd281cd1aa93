package prometheus

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/segmentio/histstats"
)

// Handler serves the histograms of a manager in the prometheus text format.
//
// Typically, a program creates one Handler for its manager and adds it to the
// muxer used by the application under the /metrics path.
type Handler[K histstats.Key] struct {
	// The manager holding the histograms exposed by the handler.
	//
	// This field cannot be nil.
	Manager *histstats.SyncManager[K]

	// Logger receives errors writing responses. When nil, they are discarded.
	Logger *zap.Logger
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler[K]) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case "GET", "HEAD":
	default:
		res.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w := io.Writer(res)
	res.Header().Set("Content-Type", "text/plain; version=0.0.4")

	if acceptEncoding(req.Header.Get("Accept-Encoding"), "gzip") {
		res.Header().Set("Content-Encoding", "gzip")
		zw := gzip.NewWriter(w)
		defer zw.Close()
		w = zw
	}

	if req.Method == "HEAD" {
		return
	}

	if err := h.Manager.Export(w); err != nil && h.Logger != nil {
		h.Logger.Warn("writing histograms", zap.Error(err))
	}
}

func acceptEncoding(accept string, check string) bool {
	for _, coding := range strings.Split(accept, ",") {
		if coding = strings.TrimSpace(coding); strings.HasPrefix(coding, check) {
			return true
		}
	}
	return false
}
