package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/diagnosis/seatrips/internal/apiclient"
	"github.com/diagnosis/seatrips/internal/domain"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// idArgs parses every positional argument as an ID.
func idArgs(args []string) ([]int64, error) {
	ids := make([]int64, len(args))
	for i, a := range args {
		id, err := parseID(a)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func boatsCmd(client func() *apiclient.Client) *cobra.Command {
	var mine bool

	cmd := &cobra.Command{
		Use:   "boats",
		Short: "List and manage boats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api := client()
			list := api.ListBoats
			if mine {
				list = api.MyBoats
			}
			page, err := list(cmd.Context())
			if err != nil {
				return err
			}
			printBoats(cmd.OutOrStdout(), page.Results)
			return nil
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "Only boats owned by the signed-in user")

	cmd.AddCommand(
		boatShowCmd(client),
		boatCreateCmd(client),
		boatUpdateCmd(client),
		&cobra.Command{
			Use:   "delete <boat-id>",
			Short: "Delete a boat",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := client().DeleteBoat(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted boat %d\n", id)
				return nil
			},
		},
		&cobra.Command{
			Use:   "zones",
			Short: "List sailing zones",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				zones, err := client().SailingZones(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tACTIVE")
				for _, z := range zones {
					fmt.Fprintf(tw, "%d\t%s\t%t\n", z.ID, z.Name, z.IsActive)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "availability <boat-id>",
			Short: "List departure slots of a boat",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				slots, err := client().BoatAvailability(cmd.Context(), id)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tDATE\tDEPARTS\tRETURNS\tLIMIT\tACTIVE")
				for _, s := range slots {
					limit := "-"
					if s.CapacityLimit != nil {
						limit = strconv.Itoa(*s.CapacityLimit)
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%t\n", s.ID, s.DepartureDate, s.DepartureTime, s.ReturnTime, limit, s.IsActive)
				}
				return tw.Flush()
			},
		},
		blockedDatesCmd(client),
		seasonalCmd(client),
	)
	return cmd
}

func printBoats(w io.Writer, boats []domain.Boat) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tCAPACITY\tACTIVE")
	for _, b := range boats {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%t\n", b.ID, b.Name, b.BoatType, b.Capacity, b.IsActive)
	}
	tw.Flush()
}

func boatShowCmd(client func() *apiclient.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "show <boat-id>",
		Short: "Show a boat with its features",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			api := client()
			boat, err := api.GetBoat(cmd.Context(), id)
			if err != nil {
				return err
			}
			features, err := api.BoatFeatures(cmd.Context(), id)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printBoats(w, []domain.Boat{*boat})
			for _, f := range features {
				name := f.FeatureTypeDisplay
				if name == "" {
					name = f.FeatureType
				}
				fmt.Fprintf(w, "  + %s\n", name)
			}
			for _, p := range boat.Pricing {
				fmt.Fprintf(w, "  %dh: %s per person\n", p.DurationHours, p.PricePerPerson.StringFixed(2))
			}
			return nil
		},
	}
}

func boatCreateCmd(client func() *apiclient.Client) *cobra.Command {
	var boat domain.Boat

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a boat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if boat.Capacity <= 0 {
				return fmt.Errorf("--capacity must be positive")
			}
			created, err := client().CreateBoat(cmd.Context(), boat)
			if err != nil {
				return err
			}
			printBoats(cmd.OutOrStdout(), []domain.Boat{*created})
			return nil
		},
	}
	cmd.Flags().StringVar(&boat.Name, "name", "", "Boat name")
	cmd.Flags().StringVar(&boat.BoatType, "type", "", "Boat type")
	cmd.Flags().IntVar(&boat.Capacity, "capacity", 0, "Passenger capacity")
	cmd.Flags().StringVar(&boat.Description, "description", "", "Description")
	cmd.Flags().BoolVar(&boat.IsActive, "active", true, "Accept bookings")
	cmd.MarkFlagRequired("name")
	return cmd
}

// boatUpdateCmd sends only the flags that were set.
func boatUpdateCmd(client func() *apiclient.Client) *cobra.Command {
	var (
		name        string
		description string
		capacity    int
		active      bool
	)

	cmd := &cobra.Command{
		Use:   "update <boat-id>",
		Short: "Change boat fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			patch := map[string]any{}
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch["name"] = name
			}
			if flags.Changed("description") {
				patch["description"] = description
			}
			if flags.Changed("capacity") {
				patch["capacity"] = capacity
			}
			if flags.Changed("active") {
				patch["is_active"] = active
			}
			if len(patch) == 0 {
				return fmt.Errorf("nothing to update")
			}

			boat, err := client().UpdateBoat(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			printBoats(cmd.OutOrStdout(), []domain.Boat{*boat})
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Boat name")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().IntVar(&capacity, "capacity", 0, "Passenger capacity")
	cmd.Flags().BoolVar(&active, "active", true, "Accept bookings")
	return cmd
}

func blockedDatesCmd(client func() *apiclient.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocked-dates <boat-id>",
		Short: "List days a boat does not sail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			blocks, err := client().BlockedDates(cmd.Context(), id)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFROM\tTO\tREASON")
			for _, b := range blocks {
				from, to := b.Days()
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", b.ID, from, to, b.Reason)
			}
			return tw.Flush()
		},
	}

	var from, to, reason string
	add := &cobra.Command{
		Use:   "add <boat-id>",
		Short: "Block a day or a range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			in := domain.BlockedDate{Reason: reason}
			if in.DateFrom, err = domain.ParseDate(from); err != nil {
				return err
			}
			if to != "" {
				if in.DateTo, err = domain.ParseDate(to); err != nil {
					return err
				}
			}
			out, err := client().AddBlockedDate(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Blocked %d\n", out.ID)
			return nil
		},
	}
	add.Flags().StringVar(&from, "from", "", "First day YYYY-MM-DD")
	add.Flags().StringVar(&to, "to", "", "Last day YYYY-MM-DD (default: --from)")
	add.Flags().StringVar(&reason, "reason", "", "Reason")
	add.MarkFlagRequired("from")

	cmd.AddCommand(add, &cobra.Command{
		Use:   "delete <boat-id> <block-id>",
		Short: "Remove a block",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := idArgs(args)
			if err != nil {
				return err
			}
			return client().DeleteBlockedDate(cmd.Context(), ids[0], ids[1])
		},
	})
	return cmd
}

func seasonalCmd(client func() *apiclient.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seasonal <boat-id>",
		Short: "List seasonal prices of a boat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			prices, err := client().SeasonalPricing(cmd.Context(), id)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFROM\tTO\tHOURS\tPRICE")
			for _, p := range prices {
				from, to := p.Days()
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", p.ID, from, to, p.DurationHours, p.PricePerPerson.StringFixed(2))
			}
			return tw.Flush()
		},
	}

	var from, to, price string
	var hours int
	add := &cobra.Command{
		Use:   "add <boat-id>",
		Short: "Override the per-person price for a date range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			in := domain.SeasonalPrice{DurationHours: hours}
			if in.DateFrom, err = domain.ParseDate(from); err != nil {
				return err
			}
			if in.DateTo, err = domain.ParseDate(to); err != nil {
				return err
			}
			if in.PricePerPerson, err = decimal.NewFromString(price); err != nil || !in.PricePerPerson.IsPositive() {
				return fmt.Errorf("invalid --price %q", price)
			}
			out, err := client().AddSeasonalPrice(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seasonal price %d\n", out.ID)
			return nil
		},
	}
	add.Flags().StringVar(&from, "from", "", "First day YYYY-MM-DD")
	add.Flags().StringVar(&to, "to", "", "Last day YYYY-MM-DD")
	add.Flags().IntVar(&hours, "hours", 0, "Trip duration the price applies to (0 = any)")
	add.Flags().StringVar(&price, "price", "", "Price per person")
	add.MarkFlagRequired("from")
	add.MarkFlagRequired("to")
	add.MarkFlagRequired("price")

	cmd.AddCommand(add, &cobra.Command{
		Use:   "delete <boat-id> <price-id>",
		Short: "Remove a seasonal price",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := idArgs(args)
			if err != nil {
				return err
			}
			return client().DeleteSeasonalPrice(cmd.Context(), ids[0], ids[1])
		},
	})
	return cmd
}

func seatsCmd(client func() *apiclient.Client) *cobra.Command {
	var tripID int64

	cmd := &cobra.Command{
		Use:   "seats",
		Short: "List seats held back from sale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			blocks, err := client().BlockedSeats(cmd.Context(), tripID)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTRIP\tSEATS\tREASON")
			for _, b := range blocks {
				fmt.Fprintf(tw, "%d\t%d\t%d\t%s\n", b.ID, b.TripID, b.Seats, b.Reason)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int64Var(&tripID, "trip", 0, "Only this trip")

	var seats int
	var reason string
	block := &cobra.Command{
		Use:   "block <trip-id>",
		Short: "Hold seats back on a trip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if seats <= 0 {
				return fmt.Errorf("--seats must be positive")
			}
			out, err := client().BlockSeats(cmd.Context(), id, seats, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Blocked %d seats (%d)\n", out.Seats, out.ID)
			return nil
		},
	}
	block.Flags().IntVar(&seats, "seats", 0, "Number of seats")
	block.Flags().StringVar(&reason, "reason", "", "Reason")

	cmd.AddCommand(block, &cobra.Command{
		Use:   "unblock <block-id>",
		Short: "Release held seats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return client().UnblockSeats(cmd.Context(), id)
		},
	})
	return cmd
}
