// Package daemon wires configuration, logging, the auth chain and the web
// service together.
package daemon

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/authchain/authchain/internal/config"
	"github.com/authchain/authchain/internal/logger"
	"github.com/authchain/authchain/internal/logger/adapter/stdlogger"
	"github.com/authchain/authchain/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
}

// Start starts the web service and blocks until it was shut down by signal.
func (d *Daemon) Start() error {
	errC := make(chan error, 1)

	go func() {
		errC <- d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
	}()

	go d.webService.WaitShutdown()

	return <-errC
}

// Init initializes logging and redirects library loggers into it.
func Init(cfg *config.Config) error {
	if err := logger.Init(cfg.Log); err != nil {
		return err //nolint:wrapcheck
	}

	ldap.Logger(stdlogger.New("ldap", zerolog.DebugLevel).Std())

	return nil
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil") //nolint:err113
	}

	if cfg.DevMode {
		if dump, err := config.DumpConfig(*cfg); err == nil {
			log.Debug().Msg("effective configuration:\n" + dump)
		}
	}

	authService, err := NewAuthService(cfg)
	if err != nil {
		return nil, err
	}

	log.Info().Int("port", cfg.Webserver.Port).Bool("dev", cfg.DevMode).Msg("starting web service")

	return &Daemon{
		cfg:        cfg,
		webService: web.New(cfg, authService),
	}, nil
}
