package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/K3das/orange-scribe/options"
	"github.com/K3das/orange-scribe/protocol"
	"github.com/K3das/orange-scribe/utils"
	"github.com/K3das/orange-scribe/worker"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

//go:embed templates/*.tmpl
var templates embed.FS

// base64 of the largest accepted download, plus room for the envelope
const maxMessageSize = 1024 * 1024 * 40

const shutdownTimeout = 5 * time.Second

const OptionsPath = "/options"

type Server struct {
	log *zap.Logger

	options *options.Options
	runtime protocol.Sender

	addr     string
	template *template.Template
}

type ServerOptions struct {
	ParentLogger *zap.Logger
	Options      *options.Options
	Runtime      protocol.Sender
	ListenAddr   string
}

func NewServer(serverOptions ServerOptions) (*Server, error) {
	tmpl, err := template.ParseFS(templates, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	return &Server{
		log:      serverOptions.ParentLogger.Named("web"),
		options:  serverOptions.Options,
		runtime:  serverOptions.Runtime,
		addr:     serverOptions.ListenAddr,
		template: tmpl,
	}, nil
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(s.logRequests)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get(OptionsPath, s.handleOptionsPage)
	r.Post(OptionsPath, s.handleOptionsSave)
	r.Post(worker.MessagePath, s.handleRuntimeMessage)

	return r
}

func (s *Server) Run(ctx context.Context) error {
	defer utils.PanicRecovery(s.log)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()
	s.log.With(zap.String("addr", s.addr)).Info("http server listening")

	select {
	case err := <-serveErr:
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, log := utils.LogContextWith(r.Context(), s.log,
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(ctx))

		log.With(
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		).Debug("handled request")
	})
}

type optionsPage struct {
	Label    string
	Save     string
	Value    string
	Feedback options.Feedback
}

func (s *Server) renderOptions(w http.ResponseWriter, r *http.Request, status int, value string, feedback options.Feedback) {
	log := utils.GetLogFromContext(r.Context(), s.log)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	err := s.template.ExecuteTemplate(w, "options.html.tmpl", optionsPage{
		Label:    s.options.Text("options_label"),
		Save:     s.options.Text("options_save"),
		Value:    value,
		Feedback: feedback,
	})
	if err != nil {
		log.Error("failed to render options page", zap.Error(err))
	}
}

func (s *Server) handleOptionsPage(w http.ResponseWriter, r *http.Request) {
	value, feedback := s.options.Load(r.Context())
	s.renderOptions(w, r, http.StatusOK, value, feedback)
}

func (s *Server) handleOptionsSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	value := r.PostFormValue("apiKey")
	feedback := s.options.Save(r.Context(), value)

	status := http.StatusOK
	if feedback.Kind == options.FeedbackError {
		status = http.StatusUnprocessableEntity
	}
	s.renderOptions(w, r, status, value, feedback)
}

func (s *Server) handleRuntimeMessage(w http.ResponseWriter, r *http.Request) {
	log := utils.GetLogFromContext(r.Context(), s.log)

	var message protocol.Message
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageSize)).Decode(&message); err != nil {
		http.Error(w, "invalid message", http.StatusBadRequest)
		return
	}

	response, err := s.runtime.SendMessage(r.Context(), message)
	if errors.Is(err, protocol.ErrUnhandledAction) {
		http.Error(w, "unhandled action", http.StatusBadRequest)
		return
	} else if err != nil {
		log.Error("failed to handle runtime message", zap.Error(err))
		http.Error(w, "message failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error("failed to write runtime response", zap.Error(err))
	}
}
