package osrm

// OSRM response codes. Anything other than codeOK is a failure.
const (
	codeOK        = "Ok"
	codeNoRoute   = "NoRoute"
	codeNoSegment = "NoSegment"
)

// routeResponse is the body of GET /route/v1/{profile}/{coordinates}.
type routeResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message,omitempty"`
	Routes  []route `json:"routes"`
}

type route struct {
	Distance float64 `json:"distance"` // meters
	Duration float64 `json:"duration"` // seconds
	Geometry string  `json:"geometry"` // polyline, precision 5
	Legs     []leg   `json:"legs"`
}

type leg struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Steps    []step  `json:"steps"`
}

type step struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}
