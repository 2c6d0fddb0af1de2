// Package api exposes an editing session over HTTP.
package api

import (
	"context"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/tabreel/internal/editor"
	"github.com/keagan/tabreel/internal/geometry"
	"github.com/keagan/tabreel/internal/media"
	"github.com/keagan/tabreel/internal/store"
	"github.com/keagan/tabreel/internal/timeline"
)

// Library is the recording store as served over HTTP
type Library interface {
	ListMedia(ctx context.Context) ([]media.Entry, error)
	Get(ctx context.Context, id string) (media.Entry, error)
	GetMediaBytes(ctx context.Context, id string) ([]byte, error)
	Import(ctx context.Context, rec store.Recording, r io.Reader) (string, error)
}

// Previewer renders a still of state at playhead t
type Previewer interface {
	Render(ctx context.Context, state timeline.EditorState, t float64, pane geometry.Size) (*image.RGBA, error)
}

type ServerConfig struct {
	Addr      string
	Session   *editor.Session
	Library   Library
	Previewer Previewer
	Logger    zerolog.Logger
	StartTime time.Time
}

type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger
}

func NewServer(cfg ServerConfig) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      NewRouter(cfg),
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger.With().Str("component", "api").Logger(),
	}
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
