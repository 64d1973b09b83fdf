package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/freeds2mqtt/internal/config"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
)

const (
	defaultHealthTimeout   = 10 * time.Second
	defaultSnapshotTimeout = 5 * time.Second
)

// Server answers HTTP requests by asking the master actor.
type Server struct {
	port            uint
	httpLog         bool
	healthTimeout   time.Duration
	snapshotTimeout time.Duration
	rootContext     *actor.RootContext
	masterActor     *actor.PID
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID) *http.Server {
	s := &Server{
		port:            cfg.Port,
		rootContext:     rootContext,
		masterActor:     masterActor,
		httpLog:         cfg.HttpLog,
		healthTimeout:   defaultHealthTimeout,
		snapshotTimeout: defaultSnapshotTimeout,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
