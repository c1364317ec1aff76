// Package restserver exposes the QC engine and the profile store over HTTP.
package restserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/BerringDC/BDC-qc/internal/log"
	"github.com/BerringDC/BDC-qc/internal/qc"
	"github.com/BerringDC/BDC-qc/internal/storage"
	"github.com/BerringDC/BDC-qc/pkg/config"
)

const shutdownTimeout = 5 * time.Second

// Processor annotates one profile. *qc.Engine satisfies it.
type Processor interface {
	Process(p qc.Profile) (qc.Profile, error)
}

// Controller represents the REST server controller
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	Server   http.Server
	engine   Processor
	store    storage.ProfileStore
	logger   *zap.SugaredLogger
	handlers *Handlers

	mu       sync.Mutex
	listener net.Listener
}

// NewController creates a REST server controller. A nil store disables the
// endpoints that read or write stored profiles.
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, engine Processor, store storage.ProfileStore, logger *zap.SugaredLogger) *Controller {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	ctrl := &Controller{
		ctx:    ctx,
		wg:     wg,
		engine: engine,
		store:  store,
		logger: logger.Named("restserver"),
	}

	if rc.ListenAddr == "" {
		ctrl.logger.Info("rest.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = "0.0.0.0"
	}
	if rc.Port == 0 {
		ctrl.logger.Infof("rest.port not provided; defaulting to %d", config.DefaultRESTPort)
		rc.Port = config.DefaultRESTPort
	}

	ctrl.handlers = NewHandlers(ctrl)
	ctrl.Server.Addr = net.JoinHostPort(rc.ListenAddr, fmt.Sprint(rc.Port))
	ctrl.Server.Handler = ctrl.setupRouter()
	return ctrl
}

// StartController binds the listen address and serves until the
// controller's context is cancelled.
func (c *Controller) StartController() error {
	ln, err := net.Listen("tcp", c.Server.Addr)
	if err != nil {
		return fmt.Errorf("REST server could not listen on %s: %w", c.Server.Addr, err)
	}
	c.mu.Lock()
	c.listener = ln
	c.mu.Unlock()

	c.logger.Infow("starting REST server", "addr", ln.Addr().String())
	c.wg.Add(2)

	go func() {
		defer c.wg.Done()
		if err := c.Server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		defer c.wg.Done()
		<-c.ctx.Done()
		c.logger.Info("shutting down the REST server")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		c.Server.Shutdown(ctx)
	}()

	return nil
}

// Addr returns the bound address once the controller has started.
func (c *Controller) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener == nil {
		return ""
	}
	return c.listener.Addr().String()
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(log.HTTPMiddleware(c.logger))

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/qc", c.handlers.PostQC).Methods(http.MethodPost)
	api.HandleFunc("/profiles", c.handlers.ListProfiles).Methods(http.MethodGet)
	api.HandleFunc("/profiles/{id}", c.handlers.GetProfile).Methods(http.MethodGet)
	api.HandleFunc("/checks", c.handlers.GetChecks).Methods(http.MethodGet)
	api.HandleFunc("/health", c.handlers.GetHealth).Methods(http.MethodGet)

	return router
}
