package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/engram/pkg/engine"
	"github.com/papercomputeco/engram/pkg/store"
)

// RangeInput is an inclusive numeric range in a request body.
type RangeInput struct {
	GTE *float64 `json:"gte,omitempty"`
	LTE *float64 `json:"lte,omitempty"`
}

// FiltersInput is the JSON form of search filters.
type FiltersInput struct {
	FloatTimeStamp *RangeInput `json:"floatTimeStamp,omitempty"`
	SpeakerID      *string     `json:"speakerId,omitempty"`
	Category       *string     `json:"category,omitempty"`
}

// ToStoreFilters converts the JSON form into store filters.
func (f *FiltersInput) ToStoreFilters() store.Filters {
	if f == nil {
		return store.Filters{}
	}

	filters := store.Filters{
		SpeakerID: f.SpeakerID,
		Category:  f.Category,
	}
	if f.FloatTimeStamp != nil {
		filters.FloatTimeStamp = &store.RangeFilter{
			GTE: f.FloatTimeStamp.GTE,
			LTE: f.FloatTimeStamp.LTE,
		}
	}

	return filters
}

// retrieveRequest is the body of POST /memory/retrieve.
type retrieveRequest struct {
	Query   string        `json:"query"`
	TopK    int           `json:"top_k,omitempty"`
	Filters *FiltersInput `json:"filters,omitempty"`
}

// retrieveHit is one structured search result.
type retrieveHit struct {
	ID        string  `json:"id"`
	Score     float64 `json:"score"`
	TimeStamp string  `json:"timeStamp"`
	Weekday   string  `json:"weekday"`
	Memory    string  `json:"memory"`
}

// retrieveResponse is the reply of POST /memory/retrieve.
type retrieveResponse struct {
	Query     string        `json:"query"`
	Formatted string        `json:"formatted"`
	Hits      []retrieveHit `json:"hits"`
	Count     int           `json:"count"`
}

func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	count, err := s.engine.Count(c.Context())
	if err != nil {
		s.logger.Error("counting memories failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to count memories",
		})
	}

	return c.JSON(fiber.Map{
		"count":  count,
		"tokens": s.engine.TokenStatistics(),
	})
}

func (s *Server) handleRetrieve(c *fiber.Ctx) error {
	var req retrieveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "query is required",
		})
	}

	topK := req.TopK
	if topK <= 0 {
		topK = 5
	}

	hits, err := s.engine.Search(c.Context(), req.Query, topK, req.Filters.ToStoreFilters())
	if err != nil {
		s.logger.Error("retrieve failed", "query", req.Query, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "retrieve failed",
		})
	}

	resp := retrieveResponse{
		Query: req.Query,
		Hits:  make([]retrieveHit, 0, len(hits)),
		Count: len(hits),
	}
	for _, hit := range hits {
		resp.Hits = append(resp.Hits, retrieveHit{
			ID:        hit.ID,
			Score:     hit.Score,
			TimeStamp: hit.Record.TimeStamp,
			Weekday:   hit.Record.Weekday,
			Memory:    hit.Record.Memory,
		})
	}

	// Keep the line-oriented form alongside the structured hits so thin
	// clients can drop it straight into a prompt.
	resp.Formatted = engine.FormatHits(hits)

	return c.JSON(resp)
}
