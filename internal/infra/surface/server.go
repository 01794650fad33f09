package surface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"voice-chat/internal/domain"
	"voice-chat/internal/infra"
)

// Conversation is what a rendering surface may see and do.
type Conversation interface {
	State() domain.ConversationState
	Subscribe() (<-chan domain.ConversationState, func())
	History() []domain.Turn
	MicTap()
	Retry()
	AskAnother()
	Stop()
	Reset()
}

// Server exposes the conversation over HTTP for a companion display.
type Server struct {
	addr         string
	conversation Conversation
	logger       *slog.Logger
	router       chi.Router
	upgrader     websocket.Upgrader
}

func NewServer(addr string, conversation Conversation, logger *slog.Logger) *Server {
	s := &Server{
		addr:         addr,
		conversation: conversation,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	limiter := infra.NewRateLimiter(60, time.Minute)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	r.Get("/state", s.handleState)
	r.Get("/state/stream", s.handleStream)
	r.Get("/transcript", s.handleTranscript)
	r.Route("/intents", func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Post("/{intent}", s.handleIntent)
	})
	s.router = r

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("surface server starting", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving surface: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down surface: %w", err)
		}
		return nil
	}
}

type turnView struct {
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.conversation.State())
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	history := s.conversation.History()
	turns := make([]turnView, 0, len(history))
	for _, t := range history {
		turns = append(turns, turnView{Role: t.Role, Content: t.Content})
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	switch name := chi.URLParam(r, "intent"); name {
	case "mic":
		s.conversation.MicTap()
	case "retry":
		s.conversation.Retry()
	case "ask-another":
		s.conversation.AskAnother()
	case "stop":
		s.conversation.Stop()
	case "reset":
		s.conversation.Reset()
	default:
		http.Error(w, fmt.Sprintf("unknown intent %q", name), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleStream pushes every state change to a websocket client until either side goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	states, unsubscribe := s.conversation.Subscribe()
	defer unsubscribe()

	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-clientGone:
			return
		case <-r.Context().Done():
			return
		case state, ok := <-states:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "conversation closed"))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(state); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
