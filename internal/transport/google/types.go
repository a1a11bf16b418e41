package google

// Wire shapes of the Maps legacy JSON web services. Only the fields we read are declared.

type location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type geometry struct {
	Location *location `json:"location"`
}

type envelope struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type geocodeResponse struct {
	envelope
	Results []struct {
		FormattedAddress string   `json:"formatted_address"`
		Geometry         geometry `json:"geometry"`
	} `json:"results"`
}

type prediction struct {
	PlaceID              string `json:"place_id"`
	Description          string `json:"description"`
	StructuredFormatting struct {
		MainText      string `json:"main_text"`
		SecondaryText string `json:"secondary_text"`
	} `json:"structured_formatting"`
	Types []string `json:"types"`
}

type autocompleteResponse struct {
	envelope
	Predictions []prediction `json:"predictions"`
}

type placeResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity"`
	FormattedAddress string   `json:"formatted_address"`
	Geometry         geometry `json:"geometry"`
	Types            []string `json:"types"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
}

type searchResponse struct {
	envelope
	Results []placeResult `json:"results"`
}

type detailsResponse struct {
	envelope
	Result placeResult `json:"result"`
}
