package website

import (
	"slices"
	"strings"

	"cold_solutions_backend/internal/intelligence/domain"
)

type signature struct {
	needle string
	name   string
}

var cmsSignatures = []signature{
	{"wordpress", "WordPress"},
	{"wp-content", "WordPress"},
	{"wixstatic", "Wix"},
	{"wix.com", "Wix"},
	{"squarespace", "Squarespace"},
	{"cdn.shopify", "Shopify"},
	{"shopify", "Shopify"},
	{"webflow", "Webflow"},
	{"joomla", "Joomla"},
	{"drupal", "Drupal"},
	{"godaddy", "GoDaddy Website Builder"},
}

var analyticsSignatures = []signature{
	{"googletagmanager.com", "Google Tag Manager"},
	{"google-analytics.com", "Google Analytics"},
	{"gtag(", "Google Analytics"},
	{"connect.facebook.net", "Meta Pixel"},
	{"hotjar", "Hotjar"},
	{"clarity.ms", "Microsoft Clarity"},
}

var marketingSignatures = []signature{
	{"mailchimp", "Mailchimp"},
	{"hubspot", "HubSpot"},
	{"klaviyo", "Klaviyo"},
	{"activecampaign", "ActiveCampaign"},
}

var chatSignatures = []string{"intercom", "tawk.to", "drift.com", "crisp.chat", "zopim", "livechatinc", "tidio"}

var bookingSignatures = []string{"calendly.com", "acuityscheduling", "setmore", "booksy", "squareup.com/appointments", "simplybook", "housecallpro", "servicetitan"}

var socialHosts = []string{"facebook.com", "instagram.com", "linkedin.com", "twitter.com", "x.com/", "youtube.com", "tiktok.com", "yelp.com"}

func matchCMS(s string) string {
	for _, sig := range cmsSignatures {
		if strings.Contains(s, sig.needle) {
			return sig.name
		}
	}
	return ""
}

// detectFromSource inspects script sources, link targets and inline script bodies.
func detectFromSource(t *domain.DetectedTechnologies, src string) {
	s := strings.ToLower(src)
	if strings.TrimSpace(s) == "" {
		return
	}
	if t.CMS == "" {
		t.CMS = matchCMS(s)
	}
	for _, sig := range analyticsSignatures {
		if strings.Contains(s, sig.needle) && !slices.Contains(t.Analytics, sig.name) {
			t.Analytics = append(t.Analytics, sig.name)
		}
	}
	for _, sig := range marketingSignatures {
		if strings.Contains(s, sig.needle) && !slices.Contains(t.Marketing, sig.name) {
			t.Marketing = append(t.Marketing, sig.name)
		}
	}
	for _, needle := range chatSignatures {
		if strings.Contains(s, needle) {
			t.HasLiveChat = true
		}
	}
	for _, needle := range bookingSignatures {
		if strings.Contains(s, needle) {
			t.HasBooking = true
		}
	}
}

// detectFromText catches booking calls to action in visible copy.
func detectFromText(t *domain.DetectedTechnologies, text string) {
	for _, phrase := range []string{"book online", "book now", "schedule online", "book an appointment"} {
		if strings.Contains(text, phrase) {
			t.HasBooking = true
			return
		}
	}
}

func isSocial(href string) bool {
	for _, host := range socialHosts {
		if strings.Contains(href, host) {
			return true
		}
	}
	return false
}
