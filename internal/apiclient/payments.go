package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/diagnosis/seatrips/internal/domain"
)

// PaymentStatus is polled by the payment success page after the provider
// redirects back.
func (c *Client) PaymentStatus(ctx context.Context, bookingID int64) (*domain.PaymentStatus, error) {
	var out domain.PaymentStatus
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/payments/%d/check_status/", bookingID), nil, nil, &out); err != nil {
		return nil, err
	}
	if out.BookingID == 0 {
		out.BookingID = bookingID
	}
	return &out, nil
}
