// Package server runs http.Handlers with production timeouts and shuts them
// down gracefully.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// Server wraps an http.Server with an explicit listen step, so the bound
// address is known before serving starts
type Server struct {
	name       string
	httpServer *http.Server
	config     *Config

	mu       sync.Mutex
	listener net.Listener
	serving  bool
}

// Config holds server configuration
type Config struct {
	// Name identifies the server in logs
	Name string

	// Address is the listen address, e.g. "localhost:3000". Port 0 picks a free port.
	Address string

	Handler http.Handler

	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	MaxHeaderBytes    int

	// Database, when set, has its connection pool tuned before the server starts
	Database *DatabaseConfig
}

// DatabaseConfig holds database connection pool configuration
type DatabaseConfig struct {
	DB              *sql.DB
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns a production-ready server configuration
func DefaultConfig(name, address string, handler http.Handler) *Config {
	return &Config{
		Name:              name,
		Address:           address,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

// DefaultDatabaseConfig returns connection pool settings for db
func DefaultDatabaseConfig(db *sql.DB) *DatabaseConfig {
	return &DatabaseConfig{
		DB:              db,
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// New creates a server
func New(config *Config) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("server config cannot be nil")
	}
	if config.Handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	if config.Database != nil {
		if err := configureDatabasePool(config.Database); err != nil {
			return nil, fmt.Errorf("failed to configure database pool: %w", err)
		}
	}

	name := config.Name
	if name == "" {
		name = "http"
	}

	return &Server{
		name: name,
		httpServer: &http.Server{
			Addr:              config.Address,
			Handler:           config.Handler,
			ReadTimeout:       config.ReadTimeout,
			WriteTimeout:      config.WriteTimeout,
			IdleTimeout:       config.IdleTimeout,
			ReadHeaderTimeout: config.ReadHeaderTimeout,
			MaxHeaderBytes:    config.MaxHeaderBytes,
		},
		config: config,
	}, nil
}

// Name returns the server name
func (s *Server) Name() string {
	return s.name
}

// Listen binds the listen address. It is a no-op once bound.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}

	l, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = l
	return nil
}

// Serve listens if needed and serves until Shutdown or Close. A clean
// shutdown returns nil.
func (s *Server) Serve() error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	l := s.listener
	s.serving = true
	s.mu.Unlock()

	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server. A listener bound but never
// served is closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.listener != nil && !s.serving {
		s.listener.Close()
		s.listener = nil
	}
	s.mu.Unlock()
	return s.httpServer.Shutdown(ctx)
}

// Close immediately closes the server
func (s *Server) Close() error {
	return s.httpServer.Close()
}

// Addr returns the bound address, or the configured one before Listen
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address
}

func configureDatabasePool(config *DatabaseConfig) error {
	if config.DB == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	config.DB.SetMaxOpenConns(config.MaxOpenConns)
	config.DB.SetMaxIdleConns(config.MaxIdleConns)
	config.DB.SetConnMaxLifetime(config.ConnMaxLifetime)
	config.DB.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := config.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}
