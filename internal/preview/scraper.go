// Package preview scrapes Open Graph metadata for link previews.
package preview

import (
	"clipboard-sync/pkg/types"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Error codes, mirroring callable function status codes
const (
	CodeInvalidArgument = "invalid-argument"
	CodeNotFound        = "not-found"
	CodeUnavailable     = "unavailable"
	CodeInternal        = "internal"
)

const maxBodySize = 1 << 20 // 1MB

// Error is returned for every failed scrape.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// CodeOf extracts the error code, defaulting to internal.
func CodeOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeInternal
}

type Config struct {
	Timeout   time.Duration
	UserAgent string
	CacheTTL  time.Duration
}

type Scraper struct {
	client    *http.Client
	userAgent string
	cache     *cache.Cache
	logger    *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Scraper {
	s := &Scraper{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
	if cfg.CacheTTL > 0 {
		s.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return s
}

// Validate checks that raw is an absolute http(s) URL.
func Validate(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &Error{Code: CodeInvalidArgument, Message: "url is required"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &Error{Code: CodeInvalidArgument, Message: "url is malformed"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &Error{Code: CodeInvalidArgument, Message: "url must use http or https"}
	}
	if u.Host == "" {
		return nil, &Error{Code: CodeInvalidArgument, Message: "url has no host"}
	}
	return u, nil
}

// Scrape fetches rawURL and returns its Open Graph title, image and
// description.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*types.LinkPreview, error) {
	u, err := Validate(rawURL)
	if err != nil {
		return nil, err
	}
	key := u.String()

	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			p := *cached.(*types.LinkPreview)
			return &p, nil
		}
	}

	p, err := s.fetch(ctx, u)
	if err != nil {
		s.logger.Debug("Link preview failed", zap.String("url", key), zap.Error(err))
		return nil, err
	}
	if s.cache != nil {
		stored := *p
		s.cache.Set(key, &stored, cache.DefaultExpiration)
	}
	return p, nil
}

func (s *Scraper) fetch(ctx context.Context, u *url.URL) (*types.LinkPreview, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{Code: CodeInternal, Message: err.Error()}
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &Error{Code: CodeUnavailable, Message: fmt.Sprintf("failed to fetch %s", u.Host)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Code: CodeUnavailable, Message: fmt.Sprintf("fetching %s returned HTTP %d", u.Host, resp.StatusCode)}
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil && mt != "text/html" && mt != "application/xhtml+xml" {
			return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s is not an HTML page", mt)}
		}
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &Error{Code: CodeInternal, Message: "failed to parse page"}
	}

	base := u
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}
	p := Extract(doc, base)
	if p.Empty() {
		return nil, &Error{Code: CodeNotFound, Message: "no Open Graph metadata found"}
	}
	return p, nil
}

// Extract reads preview metadata from a parsed page. Open Graph tags win
// over twitter tags, which win over <title> and the description meta.
func Extract(doc *html.Node, base *url.URL) *types.LinkPreview {
	meta := map[string]string{}
	var title string

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				var key, content string
				for _, a := range n.Attr {
					switch strings.ToLower(a.Key) {
					case "property", "name":
						if key == "" {
							key = strings.ToLower(strings.TrimSpace(a.Val))
						}
					case "content":
						content = strings.TrimSpace(a.Val)
					}
				}
				if key != "" && content != "" {
					if _, seen := meta[key]; !seen {
						meta[key] = content
					}
				}
			case "title":
				if title == "" && n.FirstChild != nil {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)

	first := func(keys ...string) string {
		for _, k := range keys {
			if v := meta[k]; v != "" {
				return v
			}
		}
		return ""
	}

	p := &types.LinkPreview{
		URL:         base.String(),
		Title:       first("og:title", "twitter:title"),
		Image:       first("og:image", "og:image:url", "og:image:secure_url", "twitter:image", "twitter:image:src"),
		Description: first("og:description", "twitter:description", "description"),
		SiteName:    first("og:site_name"),
	}
	if p.Title == "" {
		p.Title = title
	}
	if p.Image != "" {
		if ref, err := url.Parse(p.Image); err == nil {
			p.Image = base.ResolveReference(ref).String()
		}
	}
	return p
}
