// Package provider gathers external business data for one lead: place details,
// the homepage and nearby competitors.
package provider

import (
	"context"
	"strings"

	"cold_solutions_backend/internal/intelligence/domain"
	"cold_solutions_backend/internal/intelligence/places"
	"cold_solutions_backend/internal/intelligence/website"
	"cold_solutions_backend/platform/logger"
)

const maxCompetitors = 5

// Provider implements the pipeline's BusinessDataProvider with Google Places and the website scraper.
type Provider struct {
	places  *places.Client
	scraper *website.Scraper
	log     *logger.Logger
}

func New(placesClient *places.Client, scraper *website.Scraper, log *logger.Logger) *Provider {
	return &Provider{places: placesClient, scraper: scraper, log: log}
}

// LookupPlace resolves and loads the business listing. Nil means no listing was found.
func (p *Provider) LookupPlace(ctx context.Context, q places.Query) (*places.Place, error) {
	return p.places.Lookup(ctx, q)
}

// ScrapeWebsite loads and parses the business homepage.
func (p *Provider) ScrapeWebsite(ctx context.Context, url string) (*website.Result, error) {
	return p.scraper.Scrape(ctx, url)
}

// FindCompetitors searches for other businesses of the same industry in the same city.
func (p *Provider) FindCompetitors(ctx context.Context, industry, city, country, excludeName string) ([]domain.Competitor, error) {
	if strings.TrimSpace(industry) == "" || strings.TrimSpace(city) == "" {
		return nil, nil
	}

	query := strings.TrimSpace(industry + " in " + city + " " + country)
	candidates, err := p.places.TextSearch(ctx, query)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Competitor, 0, maxCompetitors)
	for _, c := range candidates {
		if strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(excludeName)) {
			continue
		}
		out = append(out, domain.Competitor{
			Name:        c.Name,
			PlaceID:     c.PlaceID,
			Address:     c.Address,
			Rating:      c.Rating,
			ReviewCount: c.ReviewCount,
		})
		if len(out) == maxCompetitors {
			break
		}
	}
	return out, nil
}
