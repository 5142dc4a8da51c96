package graphhopper

// routeResponse is the body of GET /api/1/route.
type routeResponse struct {
	Paths   []path `json:"paths"`
	Message string `json:"message,omitempty"`
}

type path struct {
	Distance     float64       `json:"distance"` // meters
	Time         int64         `json:"time"`     // milliseconds
	Points       string        `json:"points"`   // encoded, since points_encoded=true
	Instructions []instruction `json:"instructions"`
}

type instruction struct {
	StreetName string  `json:"street_name"`
	Distance   float64 `json:"distance"`
	Time       int64   `json:"time"`
	Text       string  `json:"text"`
}

// geocodeResponse is the body of GET /api/1/geocode, forward and reverse.
type geocodeResponse struct {
	Hits    []hit  `json:"hits"`
	Message string `json:"message,omitempty"`
}

type hit struct {
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
	Point   struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"point"`
}

// errorResponse is the body GraphHopper sends with 4xx and 5xx statuses.
type errorResponse struct {
	Message string `json:"message"`
}
