package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/anthonynsimon/bild/imgio"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

func respondWithJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

type Cors struct {
	handler http.Handler
}

func (c *Cors) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	c.handler.ServeHTTP(w, r)
}

type Logger struct {
	handler http.Handler
	logger  *log.Logger
}

func (l *Logger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	l.handler.ServeHTTP(w, r)
	l.logger.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
}

type Router struct {
	addr string
	hub  *Hub
	mux  http.Handler
}

// NewRouter serves the progress stream of hub:
//
//	/ws            websocket stream of evolution.* messages
//	/status        current Status as JSON
//	/champion.png  current champion phenotype
func NewRouter(addr string, hub *Hub, auth *Auth) *Router {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", auth.Middleware(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	}))
	mux.HandleFunc("/status", auth.Middleware(func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, hub.Status())
	}))
	mux.HandleFunc("/champion.png", auth.Middleware(func(w http.ResponseWriter, r *http.Request) {
		champion := hub.Champion()
		if champion == nil {
			respondWithError(w, http.StatusNotFound, "no champion yet")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		if err := imgio.PNGEncoder()(w, champion.Image()); err != nil {
			log.Printf("Error encoding champion: %v", err)
		}
	}))

	logger := log.New(os.Stderr, "[http]: ", log.LstdFlags)
	return &Router{
		addr: addr,
		hub:  hub,
		mux:  &Logger{&Cors{mux}, logger},
	}
}

func (r *Router) Handler() http.Handler { return r.mux }

// Run serves until ctx is cancelled, then shuts the server and hub down.
func (r *Router) Run(ctx context.Context) error {
	go r.hub.Run()
	srv := &http.Server{Addr: r.addr, Handler: r.mux}

	errc := make(chan error, 1)
	go func() {
		log.Printf("http server started on %s", r.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		r.hub.Close()
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	err := srv.Shutdown(shutdown)
	r.hub.Close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
