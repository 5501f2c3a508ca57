// Package server exposes the catalog and video queries over HTTP for
// the browsing front end's page loaders.
package server

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/abdhe/game-catalog-proxy/pkg/catalog"
	"github.com/abdhe/game-catalog-proxy/pkg/metrics"
	"github.com/abdhe/game-catalog-proxy/pkg/video"
)

// Server is the public API server.
type Server struct {
	app     *fiber.App
	catalog *catalog.Client
	video   *video.Client
	log     *logrus.Entry
}

// New wires the API routes over the given clients.
func New(catalogClient *catalog.Client, videoClient *video.Client) *Server {
	s := &Server{
		catalog: catalogClient,
		video:   videoClient,
		log:     logrus.WithField("component", "server"),
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	app.Use(s.requestID)
	app.Use(s.accessLog)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	api := app.Group("/api")
	api.Get("/games/popular", s.handlePopular)
	api.Get("/games/:id/screenshots", s.handleScreenshots)
	api.Get("/games/:id", s.handleDetails)
	api.Get("/games", s.handleGames)
	api.Get("/genres", s.handleGenres)
	api.Get("/platforms", s.handlePlatforms)
	api.Get("/videos/search", s.handleVideoSearch)

	s.app = app
	return s
}

// Listen blocks serving the API on addr.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) requestID(c *fiber.Ctx) error {
	id := c.Get("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	c.Locals("request_id", id)
	c.Set("X-Request-ID", id)
	return c.Next()
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	metrics.ActiveRequests.Inc()
	defer metrics.ActiveRequests.Dec()

	err := c.Next()

	status := c.Response().StatusCode()
	metrics.HTTPRequestsTotal.WithLabelValues(c.Route().Path, strconv.Itoa(status)).Inc()

	s.log.WithFields(logrus.Fields{
		"request_id": c.Locals("request_id"),
		"method":     c.Method(),
		"path":       c.Path(),
		"status":     status,
		"duration":   time.Since(start).String(),
	}).Info("request served")

	return err
}
