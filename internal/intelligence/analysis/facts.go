// Package analysis turns gathered business data into a prompt, calls the AI
// provider and falls back to fixed content when the provider fails.
package analysis

import (
	"fmt"
	"strings"

	"cold_solutions_backend/internal/intelligence/domain"
	"cold_solutions_backend/internal/intelligence/places"
	"cold_solutions_backend/internal/intelligence/website"
	"cold_solutions_backend/platform/sanitize"
)

const (
	maxReviewsInPrompt = 5
	maxReviewChars     = 400
)

// Facts is everything gathered for one lead. Any source may be missing.
type Facts struct {
	Lead        domain.BusinessIntelligenceLead `json:"lead"`
	Place       *places.Place                   `json:"place,omitempty"`
	Website     *website.Result                 `json:"website,omitempty"`
	Competitors []domain.Competitor             `json:"competitors,omitempty"`
}

// CompileFacts renders facts as plain-text sections. Missing sources are left out.
func CompileFacts(f Facts) string {
	var b strings.Builder

	b.WriteString("## Business\n")
	line(&b, "Name", f.Lead.BusinessName)
	line(&b, "Industry", f.Lead.Industry)
	line(&b, "Location", strings.Join(nonEmpty(f.Lead.Address, f.Lead.City, f.Lead.State, f.Lead.ZipCode, f.Lead.Country), ", "))
	line(&b, "Website", f.Lead.Website)

	if p := f.Place; p != nil {
		b.WriteString("\n## Google listing\n")
		line(&b, "Listed name", p.Name)
		line(&b, "Address", p.Address)
		line(&b, "Phone", p.Phone)
		line(&b, "Status", p.BusinessStatus)
		if p.Rating > 0 {
			fmt.Fprintf(&b, "Rating: %.1f from %d reviews\n", p.Rating, p.ReviewCount)
		}
		if len(p.Types) > 0 {
			line(&b, "Categories", strings.Join(p.Types, ", "))
		}
		if len(p.Reviews) > 0 {
			b.WriteString("\n## Recent reviews\n")
			for i, r := range p.Reviews {
				if i == maxReviewsInPrompt {
					break
				}
				fmt.Fprintf(&b, "- (%d/5) %s\n", r.Rating, sanitize.Truncate(collapse(r.Text), maxReviewChars))
			}
		}
	}

	if w := f.Website; w != nil {
		b.WriteString("\n## Website\n")
		line(&b, "Title", w.Title)
		line(&b, "Description", w.Description)
		if len(w.Headings) > 0 {
			line(&b, "Headings", strings.Join(w.Headings, " | "))
		}
		t := w.Technologies
		line(&b, "CMS", t.CMS)
		if len(t.Analytics) > 0 {
			line(&b, "Analytics", strings.Join(t.Analytics, ", "))
		}
		if len(t.Marketing) > 0 {
			line(&b, "Marketing tools", strings.Join(t.Marketing, ", "))
		}
		fmt.Fprintf(&b, "Live chat: %s\nOnline booking: %s\nContact form: %s\n", yesNo(t.HasLiveChat), yesNo(t.HasBooking), yesNo(t.HasContactForm))
		if w.Text != "" {
			b.WriteString("\nPage text:\n")
			b.WriteString(w.Text)
			b.WriteString("\n")
		}
	}

	if len(f.Competitors) > 0 {
		b.WriteString("\n## Nearby competitors\n")
		for _, c := range f.Competitors {
			if c.Rating > 0 {
				fmt.Fprintf(&b, "- %s (%.1f, %d reviews)\n", c.Name, c.Rating, c.ReviewCount)
				continue
			}
			fmt.Fprintf(&b, "- %s\n", c.Name)
		}
	}

	return b.String()
}

func line(b *strings.Builder, label, value string) {
	if value = strings.TrimSpace(value); value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
