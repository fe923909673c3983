package website

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cold_solutions_backend/platform/logger"
)

const samplePage = `<!doctype html>
<html><head>
<title>Acme Plumbing | Springfield</title>
<meta name="description" content="24/7 emergency plumbing in Springfield.">
<meta name="generator" content="WordPress 6.4">
<script async src="https://www.googletagmanager.com/gtag/js?id=G-1"></script>
<script>window.intercomSettings = {};</script>
<style>.x { color: red }</style>
</head><body>
<h1>Emergency Plumbing</h1>
<h2>Water heaters</h2>
<p>Call us or write to <a href="mailto:Office@Acme.test?subject=hi">the office</a>.</p>
<p>Billing: billing@acme.test</p>
<a href="https://www.facebook.com/acmeplumbing">Facebook</a>
<form><input type="email" name="email"><textarea></textarea></form>
</body></html>`

func TestParseExtractsFacts(t *testing.T) {
	res, err := Parse(strings.NewReader(samplePage))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Title != "Acme Plumbing | Springfield" {
		t.Fatalf("unexpected title %q", res.Title)
	}
	if res.Description != "24/7 emergency plumbing in Springfield." {
		t.Fatalf("unexpected description %q", res.Description)
	}
	if len(res.Headings) != 2 || res.Headings[0] != "Emergency Plumbing" {
		t.Fatalf("unexpected headings %v", res.Headings)
	}
	if len(res.Emails) != 2 || res.Emails[0] != "office@acme.test" || res.Emails[1] != "billing@acme.test" {
		t.Fatalf("unexpected emails %v", res.Emails)
	}
	if len(res.SocialLinks) != 1 {
		t.Fatalf("expected one social link, got %v", res.SocialLinks)
	}
	tech := res.Technologies
	if tech.CMS != "WordPress" || !tech.HasLiveChat || !tech.HasContactForm || tech.HasBooking {
		t.Fatalf("unexpected technologies %+v", tech)
	}
	if len(tech.Analytics) != 1 || tech.Analytics[0] != "Google Tag Manager" {
		t.Fatalf("unexpected analytics %v", tech.Analytics)
	}
	if strings.Contains(res.Text, "color: red") || strings.Contains(res.Text, "intercomSettings") {
		t.Fatalf("expected style and script bodies excluded from text, got %q", res.Text)
	}
}

func TestScrapeRejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer srv.Close()

	if _, err := New(logger.Discard()).Scrape(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected error for non-html content")
	}
}

func TestScrapeFetchesPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	res, err := New(logger.Discard()).Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.URL != srv.URL || res.Title == "" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestNormalizeURL(t *testing.T) {
	if got, err := normalizeURL("acme.test"); err != nil || got != "https://acme.test" {
		t.Fatalf("expected https default, got %q %v", got, err)
	}
	if _, err := normalizeURL("ftp://acme.test"); err == nil {
		t.Fatalf("expected unsupported scheme error")
	}
}
