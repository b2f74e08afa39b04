package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-querystring/query"

	"github.com/diagnosis/seatrips/internal/domain"
)

func (c *Client) SearchTrips(ctx context.Context, search domain.TripSearch) (*Page[domain.Trip], error) {
	if err := search.Validate(); err != nil {
		return nil, &Error{Kind: KindValidation, NonField: []string{err.Error()}, Err: err}
	}
	q, err := query.Values(search)
	if err != nil {
		return nil, fmt.Errorf("encode trip search: %w", err)
	}
	return listPage[domain.Trip](c.send(ctx, http.MethodGet, "/trips/", q, nil))
}

func (c *Client) GetTrip(ctx context.Context, id int64) (*domain.Trip, error) {
	var out domain.Trip
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/trips/%d/", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
