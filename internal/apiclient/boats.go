package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/diagnosis/seatrips/internal/domain"
)

func (c *Client) ListBoats(ctx context.Context) (*Page[domain.Boat], error) {
	return listPage[domain.Boat](c.send(ctx, http.MethodGet, "/boats/", nil, nil))
}

func (c *Client) MyBoats(ctx context.Context) (*Page[domain.Boat], error) {
	return listPage[domain.Boat](c.send(ctx, http.MethodGet, "/boats/my-boats/", nil, nil))
}

func (c *Client) GetBoat(ctx context.Context, id int64) (*domain.Boat, error) {
	var out domain.Boat
	if err := c.call(ctx, http.MethodGet, boatPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateBoat(ctx context.Context, boat domain.Boat) (*domain.Boat, error) {
	var out domain.Boat
	if err := c.call(ctx, http.MethodPost, "/boats/", nil, boat, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateBoat(ctx context.Context, id int64, patch map[string]any) (*domain.Boat, error) {
	var out domain.Boat
	if err := c.call(ctx, http.MethodPatch, boatPath(id), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteBoat(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, boatPath(id), nil, nil, nil)
}

func (c *Client) BoatFeatures(ctx context.Context, boatID int64) ([]domain.BoatFeature, error) {
	page, err := listPage[domain.BoatFeature](c.send(ctx, http.MethodGet, boatPath(boatID)+"features/", nil, nil))
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (c *Client) SailingZones(ctx context.Context) ([]domain.SailingZone, error) {
	page, err := listPage[domain.SailingZone](c.send(ctx, http.MethodGet, "/boats/sailing-zones/", nil, nil))
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (c *Client) BoatAvailability(ctx context.Context, boatID int64) ([]domain.AvailabilitySlot, error) {
	page, err := listPage[domain.AvailabilitySlot](c.send(ctx, http.MethodGet, boatPath(boatID)+"availability/", nil, nil))
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (c *Client) BlockedDates(ctx context.Context, boatID int64) ([]domain.BlockedDate, error) {
	page, err := listPage[domain.BlockedDate](c.send(ctx, http.MethodGet, boatPath(boatID)+"blocked-dates/", nil, nil))
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (c *Client) AddBlockedDate(ctx context.Context, boatID int64, in domain.BlockedDate) (*domain.BlockedDate, error) {
	var out domain.BlockedDate
	if err := c.call(ctx, http.MethodPost, boatPath(boatID)+"blocked-dates/", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteBlockedDate(ctx context.Context, boatID, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("%sblocked-dates/%d/", boatPath(boatID), id), nil, nil, nil)
}

func (c *Client) SeasonalPricing(ctx context.Context, boatID int64) ([]domain.SeasonalPrice, error) {
	page, err := listPage[domain.SeasonalPrice](c.send(ctx, http.MethodGet, boatPath(boatID)+"seasonal-pricing/", nil, nil))
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (c *Client) AddSeasonalPrice(ctx context.Context, boatID int64, in domain.SeasonalPrice) (*domain.SeasonalPrice, error) {
	var out domain.SeasonalPrice
	if err := c.call(ctx, http.MethodPost, boatPath(boatID)+"seasonal-pricing/", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSeasonalPrice(ctx context.Context, boatID, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("%sseasonal-pricing/%d/", boatPath(boatID), id), nil, nil, nil)
}

func boatPath(id int64) string {
	return fmt.Sprintf("/boats/%d/", id)
}
