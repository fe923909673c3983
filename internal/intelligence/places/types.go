package places

// Query describes the business to resolve.
type Query struct {
	Name    string
	City    string
	State   string
	Country string
	MapsURL string
}

// Review is one customer review from place details.
type Review struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// Place is the subset of place details the enrichment uses.
type Place struct {
	PlaceID        string   `json:"placeId"`
	Name           string   `json:"name"`
	Address        string   `json:"address,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	Website        string   `json:"website,omitempty"`
	MapsURL        string   `json:"mapsUrl,omitempty"`
	BusinessStatus string   `json:"businessStatus,omitempty"`
	Rating         float64  `json:"rating,omitempty"`
	ReviewCount    int      `json:"reviewCount,omitempty"`
	Types          []string `json:"types,omitempty"`
	Reviews        []Review `json:"reviews,omitempty"`
}

// Candidate is a text search hit.
type Candidate struct {
	PlaceID     string   `json:"place_id"`
	Name        string   `json:"name"`
	Address     string   `json:"formatted_address"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"user_ratings_total"`
	Types       []string `json:"types"`
}

type textSearchResponse struct {
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message"`
	Results      []Candidate `json:"results"`
}

type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		PlaceID          string   `json:"place_id"`
		Name             string   `json:"name"`
		FormattedAddress string   `json:"formatted_address"`
		Phone            string   `json:"formatted_phone_number"`
		Website          string   `json:"website"`
		URL              string   `json:"url"`
		BusinessStatus   string   `json:"business_status"`
		Rating           float64  `json:"rating"`
		UserRatingsTotal int      `json:"user_ratings_total"`
		Types            []string `json:"types"`
		Reviews          []Review `json:"reviews"`
	} `json:"result"`
}
