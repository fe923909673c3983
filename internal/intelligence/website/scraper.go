// Package website fetches a business homepage and extracts the facts used by the analysis prompt.
package website

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"cold_solutions_backend/internal/intelligence/domain"
	"cold_solutions_backend/platform/logger"
	"cold_solutions_backend/platform/sanitize"

	"golang.org/x/net/html"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	maxBodyBytes       = 2 << 20
	maxTextChars       = 4000
	maxHeadings        = 20
	userAgent          = "Mozilla/5.0 (compatible; ColdSolutionsBot/1.0)"
)

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// Result is what a scrape yields.
type Result struct {
	URL          string                      `json:"url"`
	Title        string                      `json:"title,omitempty"`
	Description  string                      `json:"description,omitempty"`
	Headings     []string                    `json:"headings,omitempty"`
	Text         string                      `json:"text,omitempty"`
	Emails       []string                    `json:"emails,omitempty"`
	SocialLinks  []string                    `json:"socialLinks,omitempty"`
	Technologies domain.DetectedTechnologies `json:"technologies"`
}

// Scraper downloads and parses pages.
type Scraper struct {
	httpClient *http.Client
	log        *logger.Logger
}

func New(log *logger.Logger) *Scraper {
	return &Scraper{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		log:        log,
	}
}

// Scrape fetches rawURL (https is assumed when no scheme is given) and parses it.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*Result, error) {
	target, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.ExternalCall("website", "scrape", time.Since(start), err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("website status %d", resp.StatusCode)
		s.log.ExternalCall("website", "scrape", time.Since(start), err)
		return nil, err
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		err := fmt.Errorf("website content type %q is not html", ct)
		s.log.ExternalCall("website", "scrape", time.Since(start), err)
		return nil, err
	}

	result, err := Parse(io.LimitReader(resp.Body, maxBodyBytes))
	s.log.ExternalCall("website", "scrape", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	result.URL = resp.Request.URL.String()
	return result, nil
}

// Parse extracts facts from an HTML document.
func Parse(r io.Reader) (*Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	p := &pageWalker{result: &Result{}}
	p.walk(doc)

	res := p.result
	res.Text = sanitize.Truncate(collapse(p.text.String()), maxTextChars)
	for _, m := range emailPattern.FindAllString(res.Text, -1) {
		p.addEmail(m)
	}
	detectFromText(&res.Technologies, strings.ToLower(res.Text))
	res.Technologies.Analytics = nonNil(res.Technologies.Analytics)
	res.Technologies.Marketing = nonNil(res.Technologies.Marketing)
	return res, nil
}

type pageWalker struct {
	result *Result
	text   strings.Builder
}

func (p *pageWalker) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			if p.result.Title == "" {
				p.result.Title = collapse(textOf(n))
			}
			return
		case "meta":
			p.meta(n)
		case "script":
			detectFromSource(&p.result.Technologies, attr(n, "src")+" "+textOf(n))
			return
		case "style", "noscript", "svg":
			return
		case "link":
			detectFromSource(&p.result.Technologies, attr(n, "href"))
		case "iframe":
			detectFromSource(&p.result.Technologies, attr(n, "src"))
		case "a":
			p.anchor(n)
		case "form":
			if hasFormInputs(n) {
				p.result.Technologies.HasContactForm = true
			}
		case "h1", "h2", "h3":
			if h := collapse(textOf(n)); h != "" && len(p.result.Headings) < maxHeadings {
				p.result.Headings = append(p.result.Headings, h)
			}
		}
	}
	if n.Type == html.TextNode {
		p.text.WriteString(n.Data)
		p.text.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}
}

func (p *pageWalker) meta(n *html.Node) {
	name := strings.ToLower(attr(n, "name"))
	if name == "" {
		name = strings.ToLower(attr(n, "property"))
	}
	content := strings.TrimSpace(attr(n, "content"))
	switch name {
	case "description", "og:description":
		if p.result.Description == "" {
			p.result.Description = content
		}
	case "generator":
		if cms := matchCMS(strings.ToLower(content)); cms != "" {
			p.result.Technologies.CMS = cms
		}
	}
}

func (p *pageWalker) anchor(n *html.Node) {
	href := strings.TrimSpace(attr(n, "href"))
	lower := strings.ToLower(href)
	switch {
	case strings.HasPrefix(lower, "mailto:"):
		addr := strings.SplitN(href[len("mailto:"):], "?", 2)[0]
		p.addEmail(addr)
	case isSocial(lower):
		if !slices.Contains(p.result.SocialLinks, href) {
			p.result.SocialLinks = append(p.result.SocialLinks, href)
		}
	default:
		detectFromSource(&p.result.Technologies, href)
	}
}

func (p *pageWalker) addEmail(addr string) {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" || slices.Contains(p.result.Emails, addr) {
		return
	}
	p.result.Emails = append(p.result.Emails, addr)
}

func hasFormInputs(n *html.Node) bool {
	found := false
	var visit func(*html.Node)
	visit = func(c *html.Node) {
		if found {
			return
		}
		if c.Type == html.ElementNode {
			if c.Data == "textarea" || (c.Data == "input" && strings.EqualFold(attr(c, "type"), "email")) {
				found = true
				return
			}
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			visit(ch)
		}
	}
	visit(n)
	return found
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			visit(ch)
		}
	}
	visit(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty website url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid website url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported website scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("website url %q has no host", raw)
	}
	return u.String(), nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
