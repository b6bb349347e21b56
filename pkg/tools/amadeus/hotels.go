package amadeus

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// HotelQuery is the input to SearchHotels. City accepts a name or an
// IATA city code.
type HotelQuery struct {
	City         string  `json:"city"`
	CheckIn      string  `json:"checkin"`
	CheckOut     string  `json:"checkout"`
	HotelClass   string  `json:"hotel_class,omitempty"`
	MaxPrice     float64 `json:"max_price,omitempty"`
	Adults       int     `json:"adults,omitempty"`
	RoomQuantity int     `json:"room_quantity,omitempty"`
	Currency     string  `json:"currency,omitempty"`
}

// HotelOffer is one priced room offer.
type HotelOffer struct {
	Name        string   `json:"name"`
	Address     []string `json:"address,omitempty"`
	City        string   `json:"city,omitempty"`
	Stars       int      `json:"stars,omitempty"`
	Price       string   `json:"price"`
	PriceNum    float64  `json:"price_num"`
	Currency    string   `json:"currency"`
	CheckIn     string   `json:"checkin"`
	CheckOut    string   `json:"checkout"`
	Description string   `json:"description,omitempty"`
}

// maxHotelIDs caps how many hotel IDs go into one offers request.
const maxHotelIDs = 20

// clampDates forces a bookable date range: past or unparseable
// check-ins move to a week out, and checkout always lands after
// check-in.
func clampDates(checkin, checkout string, today time.Time) (string, string) {
	const layout = "2006-01-02"
	day := today.Truncate(24 * time.Hour)

	ci, err := time.Parse(layout, checkin)
	if err != nil {
		ci = day.AddDate(0, 0, 7)
	}
	co, err := time.Parse(layout, checkout)
	if err != nil {
		co = ci.AddDate(0, 0, 2)
	}
	if !ci.After(day) {
		ci = day.AddDate(0, 0, 7)
	}
	if !co.After(ci) {
		co = ci.AddDate(0, 0, 2)
	}
	return ci.Format(layout), co.Format(layout)
}

type hotelListResponse struct {
	Data []struct {
		HotelID string `json:"hotelId"`
	} `json:"data"`
}

type hotelOffersResponse struct {
	Data []struct {
		Hotel struct {
			Name    string `json:"name"`
			Rating  string `json:"rating"`
			Address struct {
				Lines    []string `json:"lines"`
				CityName string   `json:"cityName"`
			} `json:"address"`
		} `json:"hotel"`
		Offers []struct {
			Price        rawPrice `json:"price"`
			CheckInDate  string   `json:"checkInDate"`
			CheckOutDate string   `json:"checkOutDate"`
			Room         struct {
				Description struct {
					Text string `json:"text"`
				} `json:"description"`
			} `json:"room"`
		} `json:"offers"`
	} `json:"data"`
}

// SearchHotels looks up hotel IDs for the city, fetches best-rate
// offers, applies the price and star filters client side, and returns
// the result sorted by price.
func (c *Client) SearchHotels(ctx context.Context, q HotelQuery) ([]HotelOffer, error) {
	checkin, checkout := clampDates(q.CheckIn, q.CheckOut, time.Now().UTC())

	cityCode, err := c.ResolveLocation(ctx, q.City, "CITY")
	if err != nil {
		return nil, err
	}
	if cityCode == "" {
		c.logger.Warn("could not resolve city", "city", q.City)
		return []HotelOffer{}, nil
	}

	var list hotelListResponse
	if err := c.get(ctx, "/v1/reference-data/locations/hotels/by-city",
		url.Values{"cityCode": {cityCode}}, &list); err != nil {
		return nil, err
	}
	if len(list.Data) == 0 {
		return []HotelOffer{}, nil
	}

	ids := make([]string, 0, maxHotelIDs)
	for _, h := range list.Data {
		ids = append(ids, h.HotelID)
		if len(ids) == maxHotelIDs {
			break
		}
	}

	if q.Adults <= 0 {
		q.Adults = 1
	}
	if q.RoomQuantity <= 0 {
		q.RoomQuantity = 1
	}
	if q.Currency == "" {
		q.Currency = "USD"
	}

	params := url.Values{
		"hotelIds":     {strings.Join(ids, ",")},
		"checkInDate":  {checkin},
		"checkOutDate": {checkout},
		"adults":       {strconv.Itoa(q.Adults)},
		"roomQuantity": {strconv.Itoa(q.RoomQuantity)},
		"currency":     {q.Currency},
		"bestRateOnly": {"true"},
	}

	var payload hotelOffersResponse
	if err := c.get(ctx, "/v3/shopping/hotel-offers", params, &payload); err != nil {
		return nil, err
	}

	offers := make([]HotelOffer, 0, len(payload.Data))
	for _, item := range payload.Data {
		stars, _ := strconv.Atoi(item.Hotel.Rating)
		for _, off := range item.Offers {
			offer := HotelOffer{
				Name:        item.Hotel.Name,
				Address:     item.Hotel.Address.Lines,
				City:        item.Hotel.Address.CityName,
				Stars:       stars,
				Price:       off.Price.Total,
				Currency:    off.Price.Currency,
				CheckIn:     off.CheckInDate,
				CheckOut:    off.CheckOutDate,
				Description: off.Room.Description.Text,
			}
			if n, err := strconv.ParseFloat(off.Price.Total, 64); err == nil {
				offer.PriceNum = n
			}
			offers = append(offers, offer)
		}
	}

	offers = filterHotels(offers, q.HotelClass, q.MaxPrice)
	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].PriceNum < offers[j].PriceNum
	})
	return offers, nil
}

// filterHotels applies the optional preference filters. HotelClass
// accepts "4-star" or a bare digit.
func filterHotels(offers []HotelOffer, hotelClass string, maxPrice float64) []HotelOffer {
	out := offers
	if maxPrice > 0 {
		kept := out[:0]
		for _, o := range out {
			if o.PriceNum > 0 && o.PriceNum <= maxPrice {
				kept = append(kept, o)
			}
		}
		out = kept
	}
	if want := digitsOf(hotelClass); want != "" {
		kept := out[:0]
		for _, o := range out {
			if o.Stars > 0 && strconv.Itoa(o.Stars) == want {
				kept = append(kept, o)
			}
		}
		out = kept
	}
	return out
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
