package http

import (
	"embed"
	"html/template"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"trivia-quiz/internal/app"
)

//go:embed templates/*.html
var templateFS embed.FS

// Options configures the HTTP surface.
type Options struct {
	Prefix  string
	Secure  bool
	Verbose bool
	Profile bool
	Version string
	Logger  *log.Logger
}

// Server renders the quiz pages and exposes its JSON and websocket endpoints.
type Server struct {
	service   *app.TriviaService
	opts      Options
	logger    *log.Logger
	templates *template.Template
	ws        *WSHandler
}

func NewServer(service *app.TriviaService, opts Options) (*Server, error) {
	opts.Prefix = strings.TrimSuffix(opts.Prefix, "/")
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	s := &Server{
		service:   service,
		opts:      opts,
		logger:    opts.Logger,
		templates: tmpl,
	}
	s.ws = NewWSHandler(service, s)
	return s, nil
}

// Routes builds the router; every path is mounted under opts.Prefix.
func (s *Server) Routes() http.Handler {
	mux := httprouter.New()
	p := s.opts.Prefix

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		s.logger.Printf("ERROR: panic serving %s %s to %s: %v", r.Method, r.URL.Path, realIP(r), i)
		s.renderError(w, http.StatusInternalServerError, "")
	}

	mux.GET(p+"/", s.serveQuiz())
	mux.POST(p+"/submit", s.serveSubmit())
	mux.POST(p+"/new-player", s.serveNewPlayer())
	mux.GET(p+"/ws", s.ws.ServeWS)

	mux.GET(p+"/api/scores", s.serveScores())
	mux.GET(p+"/api/round", s.serveRound())

	mux.GET(p+"/assets/*asset", s.serveAssets())
	mux.GET(p+"/qr", s.serveQR())
	mux.GET(p+"/healthz", s.serveHealthCheck())
	mux.GET(p+"/version", s.serveVersion())
	mux.GET(p+"/robots.txt", s.serveRobots())

	if s.opts.Profile {
		registerProfileHandlers(p, mux)
	}

	return mux
}

// Prefix is the normalized path every route is mounted under.
func (s *Server) Prefix() string {
	return s.opts.Prefix
}

func (s *Server) logf(format string, args ...any) {
	if !s.opts.Verbose {
		return
	}
	s.logger.Printf(format, args...)
}

func (s *Server) securityHeaders(w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")

	if s.opts.Secure {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

// renderError writes the error page. An empty message uses the generic one.
func (s *Server) renderError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = "An error has occurred. Please try again."
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.securityHeaders(w)
	w.WriteHeader(status)

	if err := s.templates.ExecuteTemplate(w, "error.html", errorView{
		Prefix:  s.opts.Prefix,
		Status:  status,
		Message: message,
	}); err != nil {
		_, _ = io.WriteString(w, http.StatusText(status))
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func since(start time.Time) time.Duration {
	return time.Since(start).Round(time.Microsecond)
}
