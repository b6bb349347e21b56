package amadeus

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// FlightQuery is the input to SearchFlights. Origin and Destination
// accept names or IATA codes.
type FlightQuery struct {
	Origin            string   `json:"origin"`
	Destination       string   `json:"destination"`
	DateFrom          string   `json:"date_from"`
	DateTo            string   `json:"date_to,omitempty"`
	NonstopOnly       bool     `json:"nonstop_only,omitempty"`
	Cabin             string   `json:"cabin,omitempty"`
	MaxPrice          float64  `json:"max_price,omitempty"`
	PreferredCarriers []string `json:"preferred_carriers,omitempty"`
	Adults            int      `json:"adults,omitempty"`
	Currency          string   `json:"currency,omitempty"`
	MaxResults        int      `json:"max_results,omitempty"`
}

// Segment is one leg of an itinerary.
type Segment struct {
	From        string `json:"from"`
	To          string `json:"to"`
	DepTime     string `json:"dep_time"`
	ArrTime     string `json:"arr_time"`
	Carrier     string `json:"carrier"`
	CarrierCode string `json:"carrier_code"`
	Number      string `json:"number"`
	Duration    string `json:"duration"`
}

// FlightOffer is one priced itinerary, flattened for the model.
type FlightOffer struct {
	Price         string    `json:"price"`
	PriceNum      float64   `json:"price_num"`
	Currency      string    `json:"currency"`
	OneWay        bool      `json:"one_way"`
	Outbound      []Segment `json:"outbound"`
	Return        []Segment `json:"return,omitempty"`
	StopsOutbound int       `json:"stops_outbound"`
	StopsReturn   int       `json:"stops_return"`
}

// Raw payload shapes, limited to the fields we read.
type rawEndpoint struct {
	IataCode string `json:"iataCode"`
	At       string `json:"at"`
}

type rawSegment struct {
	Departure   rawEndpoint `json:"departure"`
	Arrival     rawEndpoint `json:"arrival"`
	CarrierCode string      `json:"carrierCode"`
	Number      string      `json:"number"`
	Duration    string      `json:"duration"`
}

type rawItinerary struct {
	Segments []rawSegment `json:"segments"`
}

type rawPrice struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type flightOffersResponse struct {
	Data []struct {
		Price       rawPrice       `json:"price"`
		Itineraries []rawItinerary `json:"itineraries"`
	} `json:"data"`
	Dictionaries struct {
		Carriers map[string]string `json:"carriers"`
	} `json:"dictionaries"`
}

// SearchFlights queries Flight Offers Search and returns offers sorted
// by price. Unresolvable locations yield an empty result, not an error.
func (c *Client) SearchFlights(ctx context.Context, q FlightQuery) ([]FlightOffer, error) {
	origin, err := c.ResolveLocation(ctx, q.Origin, "CITY,AIRPORT")
	if err != nil {
		return nil, err
	}
	dest, err := c.ResolveLocation(ctx, q.Destination, "CITY,AIRPORT")
	if err != nil {
		return nil, err
	}
	if origin == "" || dest == "" {
		c.logger.Warn("could not resolve flight locations",
			"origin", q.Origin, "destination", q.Destination)
		return []FlightOffer{}, nil
	}

	if q.Adults <= 0 {
		q.Adults = 1
	}
	if q.Currency == "" {
		q.Currency = "USD"
	}
	if q.MaxResults <= 0 {
		q.MaxResults = 10
	}

	params := url.Values{
		"originLocationCode":      {origin},
		"destinationLocationCode": {dest},
		"departureDate":           {q.DateFrom},
		"adults":                  {strconv.Itoa(q.Adults)},
		"currencyCode":            {q.Currency},
		"max":                     {strconv.Itoa(q.MaxResults)},
	}
	if q.DateTo != "" {
		params.Set("returnDate", q.DateTo)
	}
	if q.NonstopOnly {
		params.Set("nonStop", "true")
	}
	if q.Cabin != "" {
		params.Set("travelClass", strings.ToUpper(q.Cabin))
	}
	if q.MaxPrice > 0 {
		params.Set("maxPrice", strconv.Itoa(int(q.MaxPrice)))
	}
	if len(q.PreferredCarriers) > 0 {
		codes := make([]string, len(q.PreferredCarriers))
		for i, pc := range q.PreferredCarriers {
			codes[i] = strings.ToUpper(pc)
		}
		params.Set("includedAirlineCodes", strings.Join(codes, ","))
	}

	var payload flightOffersResponse
	if err := c.get(ctx, "/v2/shopping/flight-offers", params, &payload); err != nil {
		return nil, err
	}

	offers := make([]FlightOffer, 0, len(payload.Data))
	for _, raw := range payload.Data {
		offer := FlightOffer{
			Price:    raw.Price.Total,
			Currency: raw.Price.Currency,
			OneWay:   len(raw.Itineraries) < 2,
		}
		if n, err := strconv.ParseFloat(raw.Price.Total, 64); err == nil {
			offer.PriceNum = n
		}
		carriers := payload.Dictionaries.Carriers
		if len(raw.Itineraries) >= 1 {
			offer.Outbound = flattenSegments(raw.Itineraries[0].Segments, carriers)
			if len(offer.Outbound) > 0 {
				offer.StopsOutbound = len(offer.Outbound) - 1
			}
		}
		if len(raw.Itineraries) >= 2 {
			offer.Return = flattenSegments(raw.Itineraries[1].Segments, carriers)
			if len(offer.Return) > 0 {
				offer.StopsReturn = len(offer.Return) - 1
			}
		}
		offers = append(offers, offer)
	}

	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].PriceNum < offers[j].PriceNum
	})
	return offers, nil
}

func flattenSegments(segments []rawSegment, carriers map[string]string) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		name := carriers[seg.CarrierCode]
		if name == "" {
			name = seg.CarrierCode
		}
		out = append(out, Segment{
			From:        seg.Departure.IataCode,
			To:          seg.Arrival.IataCode,
			DepTime:     seg.Departure.At,
			ArrTime:     seg.Arrival.At,
			Carrier:     name,
			CarrierCode: seg.CarrierCode,
			Number:      seg.Number,
			Duration:    seg.Duration,
		})
	}
	return out
}
