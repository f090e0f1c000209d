package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"ttscraper/pkg/models"
	"ttscraper/pkg/scraper"
)

const maxBodyBytes = 1 << 16

// responseMargin is kept free at the end of the write timeout to send the envelope
const responseMargin = 5 * time.Second

// ScrapeRequest is the POST /scrape body. URL holds a handle, "@handle" or a profile URL.
type ScrapeRequest struct {
	URL string `json:"url"`
}

// ScrapeData is the payload of a successful POST /scrape
type ScrapeData struct {
	Views     int64                `json:"views"`
	Likes     int64                `json:"likes"`
	Comments  int64                `json:"comments"`
	Saves     int64                `json:"saves"`
	Shares    int64                `json:"shares"`
	Followers int64                `json:"followers"`
	Videos    []models.PostMetrics `json:"videos"`
	Status    models.RunStatus     `json:"status"`
}

// NewScrapeData flattens a run result into the response payload
func NewScrapeData(result models.ProfileResult) ScrapeData {
	totals := result.Totals()
	videos := result.Posts
	if videos == nil {
		videos = []models.PostMetrics{}
	}
	return ScrapeData{
		Views:     totals.Views,
		Likes:     totals.Likes,
		Comments:  totals.Comments,
		Saves:     totals.Saves,
		Shares:    totals.Shares,
		Followers: totals.Followers,
		Videos:    videos,
		Status:    result.Status,
	}
}

// scrapeHandler handles POST /scrape
func (s *Server) scrapeHandler(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		BadRequest(w, "invalid JSON body")
		return
	}

	handle := scraper.NormalizeHandle(req.URL)
	if handle == "" {
		BadRequest(w, "url is required")
		return
	}

	log := s.logger.WithFields(map[string]interface{}{
		"request_id": middleware.GetReqID(r.Context()),
		"handle":     handle,
	})

	ctx, cancel := s.requestContext(r.Context())
	defer cancel()

	if err := s.sessions.Acquire(ctx, 1); err != nil {
		log.WithError(err).Warn("Gave up waiting for a browser session")
		ServiceUnavailable(w, "no browser session available")
		return
	}
	defer s.sessions.Release(1)

	result := s.scraper.ScrapeProfile(ctx, handle)
	log.InfoWithFields("Scrape served", map[string]interface{}{
		"status": string(result.Status),
		"posts":  len(result.Posts),
	})

	OK(w, NewScrapeData(result))
}

// requestContext bounds the session wait and the run so the response is written
// before the server's write timeout closes the connection. A run cut short by the
// deadline reports status cancelled.
func (s *Server) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	budget := s.cfg.WriteTimeout
	if budget <= 0 {
		return context.WithCancel(parent)
	}
	if budget > 2*responseMargin {
		budget -= responseMargin
	} else {
		budget /= 2
	}
	return context.WithTimeout(parent, budget)
}
