package models

// FlightSegment, SearchBody and PassengersBody are the wire shapes of
// POST /flights/search.
type FlightSegment struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
}

type SearchBody struct {
	FlightSegments []FlightSegment `json:"flightSegments"`
	Passengers     PassengerCounts `json:"passengers"`
	Cabin          string          `json:"cabin"`
	Direct         bool            `json:"direct"`
}

func NewSearchBody(req SearchRequest) SearchBody {
	return SearchBody{
		FlightSegments: []FlightSegment{{
			Origin:      req.Origin,
			Destination: req.Destination,
			Date:        req.Date,
		}},
		Passengers: req.Passengers,
		Cabin:      req.CabinClass,
		Direct:     req.DirectOnly,
	}
}

const ErrSegmentCount ValidationError = "exactly one flight segment is required"

// Request converts the body into a SearchRequest. It does not validate the
// segment contents; call Validate on the result.
func (b SearchBody) Request() (SearchRequest, error) {
	if len(b.FlightSegments) != 1 {
		return SearchRequest{}, ErrSegmentCount
	}
	seg := b.FlightSegments[0]
	return SearchRequest{
		Origin:      seg.Origin,
		Destination: seg.Destination,
		Date:        seg.Date,
		Passengers:  b.Passengers,
		CabinClass:  b.Cabin,
		DirectOnly:  b.Direct,
	}, nil
}

type StartSearchResponse struct {
	Success  *bool  `json:"success,omitempty"`
	SearchID string `json:"search_id"`
	Message  string `json:"message,omitempty"`
}

// ResultsPage is one poll response. Complete is a coarse 0-100 progress
// indicator and is not guaranteed to grow between polls.
type ResultsPage struct {
	Complete int            `json:"complete"`
	Results  []FlightResult `json:"result"`
}

type AddCartRequest struct {
	Flight     FlightResult    `json:"flight"`
	Passengers PassengerCounts `json:"passengers"`
	Quantity   int             `json:"quantity"`
}

type UpdateCartRequest struct {
	Quantity *int        `json:"quantity,omitempty"`
	Status   *CartStatus `json:"status,omitempty"`
}

type CheckoutRequest struct {
	Customer string     `json:"customer,omitempty"`
	Lines    []CartLine `json:"lines,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
