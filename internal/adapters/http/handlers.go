package http

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/usecases"
)

// settleWait bounds how long ?wait=true blocks for a sequence to stop.
const settleWait = 15 * time.Second

// maxQueryLen caps each free-text input.
const maxQueryLen = 200

// mountRequest is the body of POST /v1/sessions.
type mountRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Language    string `json:"language"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// inputsRequest is the body of PUT /v1/sessions/:id/inputs.
type inputsRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

// languageRequest is the body of PUT /v1/sessions/:id/language.
type languageRequest struct {
	Language string `json:"language"`
}

// SessionSummary is one row of the session list.
type SessionSummary struct {
	ID        string              `json:"id"`
	State     domain.SessionState `json:"state"`
	Language  string              `json:"language"`
	Inputs    domain.Inputs       `json:"inputs"`
	Sequence  uint64              `json:"sequence"`
	HasRoute  bool                `json:"has_route"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func summarize(s domain.Snapshot) SessionSummary {
	return SessionSummary{
		ID:        s.ID,
		State:     s.State,
		Language:  s.Language,
		Inputs:    s.Inputs,
		Sequence:  s.Sequence,
		HasRoute:  s.Route != nil,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func validateInputs(origin, destination string) string {
	if len(origin) > maxQueryLen || len(destination) > maxQueryLen {
		return "origin and destination must be at most 200 characters"
	}
	return ""
}

// MountSessionHandler mounts a new map and applies the initial inputs.
// With ?wait=true the response carries the settled snapshot.
func MountSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req mountRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}
		if msg := validateInputs(req.Origin, req.Destination); msg != "" {
			return errBadRequest(c, msg)
		}
		if req.Width < 0 || req.Height < 0 || req.Width > 4096 || req.Height > 4096 {
			return errBadRequest(c, "width and height must be between 0 and 4096")
		}

		wait := c.QueryBool("wait", false)
		ctx, cancel := context.WithTimeout(c.UserContext(), settleWait)
		defer cancel()

		snap, err := deps.Sessions.Mount(ctx, usecases.MountRequest{
			Inputs:   domain.Inputs{Origin: req.Origin, Destination: req.Destination},
			Language: req.Language,
			Width:    req.Width,
			Height:   req.Height,
			Wait:     wait,
		})
		if err != nil {
			return errFromService(c, err)
		}

		c.Location("/v1/sessions/" + snap.ID)
		return c.Status(fiber.StatusCreated).JSON(snap)
	}
}

// ListSessionsHandler returns mounted sessions, oldest first.
func ListSessionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		all := deps.Sessions.List()

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		total := len(all)
		if offset >= total {
			all = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			all = all[offset:end]
		}

		rows := make([]SessionSummary, 0, len(all))
		for _, s := range all {
			rows = append(rows, summarize(s))
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: rows, Pagination: pg})
	}
}

// GetSessionHandler returns a session snapshot, or a GeoJSON
// FeatureCollection of its layers with ?format=geojson.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return errFromService(c, err)
		}

		switch strings.ToLower(c.Query("format", "json")) {
		case "json":
			return c.JSON(snap)
		case "geojson":
			data, err := SnapshotGeoJSON(snap).MarshalJSON()
			if err != nil {
				return errInternal(c, "geojson encoding failed")
			}
			c.Set("Content-Type", "application/geo+json")
			return c.Send(data)
		default:
			return errBadRequest(c, "format must be json or geojson")
		}
	}
}

// UpdateInputsHandler replaces a session's inputs. Without ?wait=true it
// answers 202 as soon as the new sequence has started.
func UpdateInputsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req inputsRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if msg := validateInputs(req.Origin, req.Destination); msg != "" {
			return errBadRequest(c, msg)
		}

		wait := c.QueryBool("wait", false)
		ctx, cancel := context.WithTimeout(c.UserContext(), settleWait)
		defer cancel()

		snap, err := deps.Sessions.Update(ctx, c.Params("id"),
			domain.Inputs{Origin: req.Origin, Destination: req.Destination}, wait)
		if err != nil {
			return errFromService(c, err)
		}

		if wait {
			return c.JSON(snap)
		}
		return c.Status(fiber.StatusAccepted).JSON(snap)
	}
}

// NextLanguageHandler cycles the session language.
func NextLanguageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lang, err := deps.Sessions.NextLanguage(c.Params("id"))
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(fiber.Map{"language": lang})
	}
}

// SetLanguageHandler sets the session language explicitly.
func SetLanguageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req languageRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Sessions.SetLanguage(c.Params("id"), req.Language); err != nil {
			return errFromService(c, err)
		}
		return c.JSON(fiber.Map{"language": req.Language})
	}
}

// UnmountSessionHandler tears a session down.
func UnmountSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.Unmount(c.Params("id")); err != nil {
			return errFromService(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// LanguagesHandler lists the supported interface languages in toggle order.
func LanguagesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(fiber.Map{"languages": domain.Languages})
	}
}
