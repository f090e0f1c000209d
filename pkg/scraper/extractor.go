package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ttscraper/pkg/browser"
	"ttscraper/pkg/config"
	"ttscraper/pkg/counts"
	errs "ttscraper/pkg/errors"
	"ttscraper/pkg/logger"
	"ttscraper/pkg/models"
)

// Extractor reads the engagement details of a post page
type Extractor struct {
	settle         time.Duration
	scrollComments bool
	scroll         ScrollOptions
	logger         logger.Logger
}

// NewExtractor creates an extractor from the scrape settings
func NewExtractor(cfg config.ScrapeConfig, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Extractor{
		settle:         cfg.PostSettle,
		scrollComments: cfg.ScrollComments,
		scroll:         scrollOptionsFrom(cfg),
		logger:         log,
	}
}

// Extract is ExtractDetail with the error logged and dropped
func (e *Extractor) Extract(ctx context.Context, page browser.Page, link string) models.PostMetrics {
	m, err := e.ExtractDetail(ctx, page, link)
	if err != nil {
		e.logger.WithError(err).WithField("link", link).Warn("Post detail extraction failed")
	}
	return m
}

// ExtractDetail reads likes, comments, saves, shares, the description and the
// top-level comments from the post already loaded in page. On any failure the
// returned record has every detail field zeroed; Link and ID are always set.
func (e *Extractor) ExtractDetail(ctx context.Context, page browser.Page, link string) (m models.PostMetrics, err error) {
	m = models.PostMetrics{
		ID:          PostID(link),
		Link:        link,
		CommentList: []models.CommentEntry{},
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = errs.Extraction("extract detail", fmt.Errorf("panic: %v", rec))
		}
		if err != nil {
			m.ResetDetail()
		}
	}()

	if err := sleep(ctx, e.settle); err != nil {
		return m, errs.Wrap(errs.ErrorTypeCancelled, "post settle", err)
	}

	if e.scrollComments {
		if _, err := ScrollToEnd(ctx, page, e.scroll); err != nil {
			return m, errs.Extraction("scroll comments", err)
		}
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return m, errs.Extraction("snapshot", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return m, errs.Wrap(errs.ErrorTypeParsing, "parse post", err)
	}

	m.MergeDetail(parseDetail(doc))
	return m, nil
}

// parseDetail reads the detail fields out of a post document. Missing elements read as zero.
func parseDetail(doc *goquery.Document) models.PostMetrics {
	d := models.PostMetrics{
		Likes:       counts.Parse(doc.Find(selectorLikes).First().Text()),
		Comments:    counts.Parse(doc.Find(selectorComments).First().Text()),
		Saves:       counts.Parse(doc.Find(selectorSaves).First().Text()),
		Shares:      counts.Parse(doc.Find(selectorShares).First().Text()),
		Description: doc.Find(selectorDescription).First().Text(),
		CommentList: []models.CommentEntry{},
	}

	doc.Find(selectorComment).Each(func(_ int, s *goquery.Selection) {
		author := s.Closest("div").Find(selectorCommentAuthor).First().Text()
		d.CommentList = append(d.CommentList, models.CommentEntry{
			Author: author,
			Text:   s.Text(),
		})
	})

	return d
}

// parsePostList reads the listing entries of a profile document. Links are
// resolved against base; every detail field is left at zero.
func parsePostList(doc *goquery.Document, base *url.URL) []models.PostMetrics {
	posts := []models.PostMetrics{}

	doc.Find(selectorPostItem).Each(func(_ int, item *goquery.Selection) {
		var link string
		if href, ok := item.Find("a").First().Attr("href"); ok {
			link = resolveLink(base, href)
		}
		posts = append(posts, models.PostMetrics{
			ID:          PostID(link),
			Views:       counts.Parse(item.Find("strong").First().Text()),
			Link:        link,
			CommentList: []models.CommentEntry{},
		})
	})

	return posts
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
