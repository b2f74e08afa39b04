package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/diagnosis/seatrips/internal/apiclient"
	"github.com/diagnosis/seatrips/internal/calendar"
	"github.com/diagnosis/seatrips/internal/domain"
	"github.com/diagnosis/seatrips/internal/pricing"
	"github.com/diagnosis/seatrips/internal/promo"
	"github.com/diagnosis/seatrips/pkg/config"
)

const appVersion = "0.1.0"

func main() {
	cfg := config.Load()

	var (
		baseURL string
		token   string
	)

	root := &cobra.Command{
		Use:           "tripctl",
		Short:         "Query trips, prices and calendars from the sea trips API",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("tripctl v{{.Version}}\n")
	root.PersistentFlags().StringVar(&baseURL, "api", cfg.Upstream.BaseURL, "Upstream API base URL")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("SEATRIPS_TOKEN"), "Upstream API token (or SEATRIPS_TOKEN)")

	client := func() *apiclient.Client {
		return apiclient.New(baseURL, cfg.Upstream.Timeout).WithToken(token)
	}

	root.AddCommand(
		tripsCmd(client),
		quoteCmd(client, cfg.Booking.DepositPerPerson),
		calendarCmd(client),
		loginCmd(client),
		boatsCmd(client),
		seatsCmd(client),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", apiclient.MessageOf(err, err.Error()))
		os.Exit(1)
	}
}

func tripsCmd(client func() *apiclient.Client) *cobra.Command {
	var search domain.TripSearch

	cmd := &cobra.Command{
		Use:   "trips",
		Short: "Search trips by date",
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := client().SearchTrips(cmd.Context(), search)
			if err != nil {
				return err
			}
			printTrips(cmd.OutOrStdout(), page.Results)
			return nil
		},
	}
	cmd.Flags().StringVar(&search.Date, "date", "", "Departure date YYYY-MM-DD")
	cmd.Flags().StringVar(&search.DateFrom, "from", "", "Range start YYYY-MM-DD")
	cmd.Flags().StringVar(&search.DateTo, "to", "", "Range end YYYY-MM-DD")
	cmd.Flags().IntVarP(&search.NumberOfPeople, "people", "n", 0, "Party size")
	cmd.Flags().IntVar(&search.Duration, "duration", 0, "Duration in hours")
	cmd.Flags().StringVar(&search.BoatType, "boat-type", "", "Boat type")
	cmd.Flags().StringSliceVar(&search.Features, "feature", nil, "Required boat feature (repeatable)")
	return cmd
}

func printTrips(w io.Writer, trips []domain.Trip) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tHOURS\tSPOTS\tPRICE\tBOAT")
	for _, t := range trips {
		boat := "-"
		if t.Boat != nil {
			boat = t.Boat.Name
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\t%s\n",
			t.ID, t.DepartureDate, t.DepartureTime, t.DurationHours, t.AvailableSpots, t.PricePerPerson.StringFixed(2), boat)
	}
	tw.Flush()
}

func quoteCmd(client func() *apiclient.Client, deposit int64) *cobra.Command {
	var (
		tripID int64
		people int
		code   string
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a trip for a party, optionally with a promo code",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tripID <= 0 {
				return fmt.Errorf("--trip is required")
			}
			ctx := cmd.Context()
			api := client()

			trip, err := api.GetTrip(ctx, tripID)
			if err != nil {
				return err
			}

			var preview *domain.PromoPreview
			if strings.TrimSpace(code) != "" {
				if api.Token() == "" {
					return fmt.Errorf("--promo needs --token: previews are priced for a signed-in user")
				}
				preview, err = promo.NewPreviewer().Preview(ctx, api, "cli", promo.Query{
					TripID:         tripID,
					NumberOfPeople: people,
					Code:           code,
				})
				if err != nil {
					return err
				}
			}

			printQuote(cmd.OutOrStdout(), pricing.NewCalculator(deposit).Calculate(trip, people, preview))
			return nil
		},
	}
	cmd.Flags().Int64Var(&tripID, "trip", 0, "Trip ID")
	cmd.Flags().IntVarP(&people, "people", "n", 1, "Party size")
	cmd.Flags().StringVar(&code, "promo", "", "Promo code")
	return cmd
}

func printQuote(w io.Writer, q pricing.Quote) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "People:\t%d\n", q.NumberOfPeople)
	if q.HasDiscount() {
		fmt.Fprintf(tw, "Original:\t%s\n", q.OriginalTotal.StringFixed(2))
		if q.PromoCode != "" {
			fmt.Fprintf(tw, "Promo %s:\t-%s\n", q.PromoCode, q.PromoDiscount.StringFixed(2))
		}
		if q.GuideDiscount.IsPositive() {
			fmt.Fprintf(tw, "Guide discount:\t-%s\n", q.GuideDiscount.StringFixed(2))
		}
	}
	fmt.Fprintf(tw, "Total:\t%s\n", q.Total.StringFixed(2))
	fmt.Fprintf(tw, "Deposit:\t%s\n", q.Deposit.StringFixed(2))
	fmt.Fprintf(tw, "Remaining:\t%s\n", q.Remaining.StringFixed(2))
	tw.Flush()
}

func calendarCmd(client func() *apiclient.Client) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Print the owner calendar for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			m := calendar.CurrentMonth(now)
			if month != "" {
				var err error
				if m, err = calendar.MonthOf(month); err != nil {
					return err
				}
			}

			data, err := client().Calendar(cmd.Context(), m.String())
			if err != nil {
				return err
			}
			printGrid(cmd.OutOrStdout(), calendar.Build(m, data, domain.DateOf(now)))
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month YYYY-MM (default current)")
	return cmd
}

// printGrid renders Monday-first weeks. A booked day is marked with *, a
// blocked one with x, seasonal pricing with $. Today is bracketed.
func printGrid(w io.Writer, g *calendar.Grid) {
	fmt.Fprintf(w, "%s  (prev %s, next %s)\n", g.Month, g.Previous, g.Next)
	fmt.Fprintln(w, " Mo   Tu   We   Th   Fr   Sa   Su")
	for i, c := range g.Cells {
		if c == nil {
			fmt.Fprint(w, "     ")
		} else {
			mark := " "
			switch {
			case len(c.Bookings) > 0:
				mark = "*"
			case c.IsBlocked():
				mark = "x"
			case len(c.SeasonalPricing) > 0:
				mark = "$"
			}
			open, shut := " ", " "
			if c.IsToday {
				open, shut = "[", "]"
			}
			fmt.Fprintf(w, "%s%2d%s%s", open, c.Day, mark, shut)
		}
		if i%7 == 6 {
			fmt.Fprintln(w)
		}
	}
	if len(g.Cells)%7 != 0 {
		fmt.Fprintln(w)
	}
}

func loginCmd(client func() *apiclient.Client) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange credentials for an API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			resp, err := client().Login(ctx, domain.LoginRequest{Email: email, Password: password})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\nexport SEATRIPS_TOKEN=%s\n", resp.User.DisplayName(), resp.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account e-mail")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}
