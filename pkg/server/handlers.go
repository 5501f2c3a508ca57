package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/abdhe/game-catalog-proxy/pkg/fetch"
	"github.com/abdhe/game-catalog-proxy/pkg/keyring"
	"github.com/abdhe/game-catalog-proxy/pkg/video"
)

func (s *Server) handlePopular(c *fiber.Ctx) error {
	window := c.QueryInt("window", 30)

	games, err := s.catalog.Popular(c.UserContext(), window)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(games)
}

// handleGames serves platform, genre, and search list queries. Exactly
// one of the platform, genre, or search filters must be present.
func (s *Server) handleGames(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	platformID := c.QueryInt("platform", 0)
	genreID := c.QueryInt("genre", 0)
	search := c.Query("search")

	ctx := c.UserContext()
	switch {
	case platformID > 0:
		games, err := s.catalog.ByPlatform(ctx, platformID, page)
		if err != nil {
			return s.respondError(c, err)
		}
		return c.JSON(games)
	case genreID > 0:
		games, err := s.catalog.ByGenre(ctx, genreID, page)
		if err != nil {
			return s.respondError(c, err)
		}
		return c.JSON(games)
	case search != "":
		games, err := s.catalog.Search(ctx, search, page)
		if err != nil {
			return s.respondError(c, err)
		}
		return c.JSON(games)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "one of platform, genre, or search is required",
		})
	}
}

func (s *Server) handleDetails(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid game id"})
	}

	detail, err := s.catalog.Details(c.UserContext(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(detail)
}

func (s *Server) handleScreenshots(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid game id"})
	}

	shots, err := s.catalog.Screenshots(c.UserContext(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(shots)
}

func (s *Server) handleGenres(c *fiber.Ctx) error {
	genres, err := s.catalog.Genres(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(genres)
}

func (s *Server) handlePlatforms(c *fiber.Ctx) error {
	platforms, err := s.catalog.Platforms(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(platforms)
}

func (s *Server) handleVideoSearch(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "q is required"})
	}

	result, err := s.video.Search(c.UserContext(), video.SearchParams{
		Query:      query,
		ChannelID:  c.Query("channelId"),
		Order:      c.Query("order"),
		MaxResults: c.QueryInt("maxResults", 0),
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(result)
}

// respondError maps the fetch error taxonomy to API status codes. The
// page loader on the other side renders a degraded state from these; it
// never sees retryable failures, only their exhaustion.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	msg := "internal error"

	var httpErr *fetch.HTTPError
	var parseErr *fetch.ParseError
	var exhausted *fetch.ExhaustionError

	switch {
	case errors.Is(err, keyring.ErrNoKeys):
		msg = "service has no upstream API keys configured"
	case errors.As(err, &exhausted):
		status = fiber.StatusServiceUnavailable
		msg = "upstream temporarily unavailable, try again shortly"
	case errors.As(err, &httpErr):
		status = fiber.StatusBadGateway
		msg = "upstream error"
	case errors.As(err, &parseErr):
		status = fiber.StatusBadGateway
		msg = "upstream returned malformed data"
	case errors.Is(err, context.Canceled):
		// Client went away; the status is never seen.
		status = fiber.StatusServiceUnavailable
		msg = "request cancelled"
	}

	s.log.WithError(err).WithFields(logrus.Fields{
		"request_id": c.Locals("request_id"),
		"path":       c.Path(),
	}).Warn("query failed")

	return c.Status(status).JSON(fiber.Map{"error": msg})
}
