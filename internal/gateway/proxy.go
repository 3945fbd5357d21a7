package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"
)

// Forwarder relays dashboard API requests to the monitoring backend,
// preserving backend status codes and bodies. An unreachable backend maps
// to the fixed-shape 502 body clients key on.
type Forwarder struct {
	proxy  *httputil.ReverseProxy
	target *url.URL
	logger *zap.Logger
}

// NewForwarder creates a forwarder for the backend base URL.
func NewForwarder(backendURL string, logger *zap.Logger) (*Forwarder, error) {
	target, err := url.Parse(backendURL)
	if err != nil {
		return nil, err
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("backend unreachable",
			zap.String("path", r.URL.Path),
			zap.String("backend", target.String()),
			zap.Error(err),
		)
		WriteBackendDown(w)
	}

	return &Forwarder{proxy: proxy, target: target, logger: logger}, nil
}

// Forward relays the request to the backend at the given path, which may
// differ from the inbound path.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, backendPath string) {
	r.URL.Path = backendPath
	r.Host = f.target.Host
	f.proxy.ServeHTTP(w, r)
}

// ServeHTTP relays the request unchanged.
func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.Forward(w, r, r.URL.Path)
}

// WriteBackendDown writes the fixed-shape 502 body. The shape is part of
// the client contract and must not change.
func WriteBackendDown(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	json.NewEncoder(w).Encode(map[string]string{"error": "Backend Unreachable (Service Down)"})
}
