package amadeus

import (
	"context"
	"encoding/json"
	"fmt"

	"tripgraph/pkg/tools"
)

var flightParams = json.RawMessage(`{
	"type": "object",
	"properties": {
		"origin": {"type": "string", "description": "departure city or IATA code"},
		"destination": {"type": "string", "description": "arrival city or IATA code"},
		"date_from": {"type": "string", "description": "departure date, YYYY-MM-DD"},
		"date_to": {"type": "string", "description": "return date, YYYY-MM-DD; omit for one way"},
		"nonstop_only": {"type": "boolean"},
		"cabin": {"type": "string", "description": "ECONOMY, PREMIUM_ECONOMY, BUSINESS or FIRST"},
		"max_price": {"type": "number"},
		"preferred_carriers": {"type": "array", "items": {"type": "string"}},
		"adults": {"type": "integer"},
		"currency": {"type": "string"},
		"max_results": {"type": "integer"}
	},
	"required": ["origin", "destination", "date_from"]
}`)

var hotelParams = json.RawMessage(`{
	"type": "object",
	"properties": {
		"city": {"type": "string", "description": "city name or IATA city code"},
		"checkin": {"type": "string", "description": "check-in date, YYYY-MM-DD"},
		"checkout": {"type": "string", "description": "check-out date, YYYY-MM-DD"},
		"hotel_class": {"type": "string", "description": "star rating preference, e.g. 4-star"},
		"max_price": {"type": "number", "description": "maximum nightly total"},
		"adults": {"type": "integer"},
		"room_quantity": {"type": "integer"},
		"currency": {"type": "string"}
	},
	"required": ["city", "checkin", "checkout"]
}`)

// Tools returns the flight and hotel search tools bound to c.
func Tools(c *Client) []tools.Tool {
	return []tools.Tool{
		{
			Name:        "search_flights",
			Description: "Search round-trip or one-way flight offers between two cities, cheapest first.",
			Parameters:  flightParams,
			Call: func(ctx context.Context, args json.RawMessage) (string, error) {
				var q FlightQuery
				if err := json.Unmarshal(args, &q); err != nil {
					return "", fmt.Errorf("search_flights: bad arguments: %w", err)
				}
				offers, err := c.SearchFlights(ctx, q)
				if err != nil {
					return "", err
				}
				return encodeResult(offers)
			},
		},
		{
			Name:        "search_hotels",
			Description: "Search hotel offers in a city for a date range, cheapest first.",
			Parameters:  hotelParams,
			Call: func(ctx context.Context, args json.RawMessage) (string, error) {
				var q HotelQuery
				if err := json.Unmarshal(args, &q); err != nil {
					return "", fmt.Errorf("search_hotels: bad arguments: %w", err)
				}
				offers, err := c.SearchHotels(ctx, q)
				if err != nil {
					return "", err
				}
				return encodeResult(offers)
			},
		},
	}
}

func encodeResult(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
