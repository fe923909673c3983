package places

import (
	"net/url"
	"regexp"
	"strings"
)

var placeIDPattern = regexp.MustCompile(`ChIJ[0-9A-Za-z_-]+`)

// ExtractPlaceID pulls a Place ID out of a Google Maps URL. It checks the
// place_id and query_place_id parameters first, then any ChIJ path segment.
func ExtractPlaceID(mapsURL string) (string, bool) {
	mapsURL = strings.TrimSpace(mapsURL)
	if mapsURL == "" {
		return "", false
	}

	if u, err := url.Parse(mapsURL); err == nil {
		q := u.Query()
		for _, key := range []string{"place_id", "query_place_id"} {
			if v := strings.TrimPrefix(q.Get(key), "place_id:"); v != "" {
				return v, true
			}
		}
		if id := placeIDPattern.FindString(u.Path); id != "" {
			return id, true
		}
	}

	if id := placeIDPattern.FindString(mapsURL); id != "" {
		return id, true
	}
	return "", false
}
