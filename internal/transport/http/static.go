package http

import (
	"embed"
	"mime"
	"net/http"
	"net/http/pprof"
	"path"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

//go:embed assets/*
var assetFS embed.FS

const qrSize = 320

func (s *Server) serveAssets() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		name := strings.TrimPrefix(path.Clean(p.ByName("asset")), "/")
		data, err := assetFS.ReadFile("assets/" + name)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		contentType := mime.TypeByExtension(path.Ext(name))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		s.securityHeaders(w)
		w.WriteHeader(http.StatusOK)
		written, _ := w.Write(data)

		s.logf("SERVE: Asset %s (%d bytes) to %s in %s", name, written, realIP(r), since(startTime))
	}
}

// serveQR renders a PNG QR code linking to the quiz page.
func (s *Server) serveQR() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		target := scheme + "://" + r.Host + s.opts.Prefix + "/"

		png, err := qrcode.Encode(target, qrcode.Medium, qrSize)
		if err != nil {
			s.logger.Printf("ERROR: qr generation for %s: %v", target, err)
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		s.securityHeaders(w)
		_, _ = w.Write(png)
	}
}

func (s *Server) servePlain(name, body string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		s.securityHeaders(w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte(body))
		if err != nil {
			s.logger.Printf("ERROR: writing %s: %v", name, err)
			return
		}

		s.logf("SERVE: %s (%d bytes) to %s in %s", name, written, realIP(r), since(startTime))
	}
}

func (s *Server) serveHealthCheck() httprouter.Handle {
	return s.servePlain("Health check", "Ok\n")
}

func (s *Server) serveVersion() httprouter.Handle {
	return s.servePlain("Version page", "trivia v"+s.opts.Version+"\n")
}

func (s *Server) serveRobots() httprouter.Handle {
	return s.servePlain("Robots page", "User-agent: *\nDisallow: /\n")
}

func registerProfileHandlers(prefix string, mux *httprouter.Router) {
	mux.Handler("GET", prefix+"/pprof/allocs", pprof.Handler("allocs"))
	mux.Handler("GET", prefix+"/pprof/block", pprof.Handler("block"))
	mux.Handler("GET", prefix+"/pprof/goroutine", pprof.Handler("goroutine"))
	mux.Handler("GET", prefix+"/pprof/heap", pprof.Handler("heap"))
	mux.Handler("GET", prefix+"/pprof/mutex", pprof.Handler("mutex"))
	mux.Handler("GET", prefix+"/pprof/threadcreate", pprof.Handler("threadcreate"))
	mux.HandlerFunc("GET", prefix+"/pprof/cmdline", pprof.Cmdline)
	mux.HandlerFunc("GET", prefix+"/pprof/profile", pprof.Profile)
	mux.HandlerFunc("GET", prefix+"/pprof/symbol", pprof.Symbol)
	mux.HandlerFunc("GET", prefix+"/pprof/trace", pprof.Trace)
}
