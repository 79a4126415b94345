package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/dharmasatrya/flightbooking/internal/aggregator"
	"github.com/dharmasatrya/flightbooking/internal/auth"
	"github.com/dharmasatrya/flightbooking/internal/cart"
	"github.com/dharmasatrya/flightbooking/internal/config"
	"github.com/dharmasatrya/flightbooking/internal/filter"
	"github.com/dharmasatrya/flightbooking/internal/models"
	"github.com/dharmasatrya/flightbooking/internal/search"
	"github.com/dharmasatrya/flightbooking/internal/timezone"
	"github.com/dharmasatrya/flightbooking/pkg/currency"
)

const lastSearchKey = "last_search"

type lastSearch struct {
	Request models.SearchRequest `json:"request"`
	Session search.Session       `json:"session"`
}

func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usagef("%v", err)
	}
	return nil
}

func (a *app) runSearch(ctx context.Context, args []string) error {
	var (
		req      models.SearchRequest
		opts     filter.Options
		maxStops int
		priceMax float64
	)
	pollCfg := search.DefaultConfig()
	pollCfg.Interval = a.cfg.PollInterval
	pollCfg.MaxAttempts = a.cfg.PollMaxAttempts
	pollCfg.MaxDuration = a.cfg.PollMaxDuration

	fs := pflag.NewFlagSet("search", pflag.ContinueOnError)
	fs.SetOutput(a.out)
	fs.StringVar(&req.Origin, "from", "", "origin airport code")
	fs.StringVar(&req.Destination, "to", "", "destination airport code")
	fs.StringVar(&req.Date, "date", "", "departure date (YYYY-MM-DD)")
	fs.IntVar(&req.Passengers.Adults, "adults", 1, "adult passengers")
	fs.IntVar(&req.Passengers.Children, "children", 0, "child passengers")
	fs.IntVar(&req.Passengers.Infants, "infants", 0, "infant passengers")
	fs.StringVar(&req.CabinClass, "cabin", models.CabinEconomy, "economy, premium_economy, business or first")
	fs.BoolVar(&req.DirectOnly, "direct", false, "only direct flights")
	fs.StringVar(&opts.SortBy, "sort", filter.SortPrice, "price, duration, departure, arrival, stops or best_value")
	fs.StringVar(&opts.SortOrder, "order", "asc", "asc or desc")
	fs.IntVar(&maxStops, "max-stops", -1, "hide results with more stops")
	fs.Float64Var(&priceMax, "price-max", 0, "hide results above this price")
	fs.StringSliceVar(&opts.Airlines, "airline", nil, "only these carriers")
	fs.DurationVar(&pollCfg.Interval, "interval", pollCfg.Interval, "delay between polls")
	fs.IntVar(&pollCfg.MaxAttempts, "max-attempts", pollCfg.MaxAttempts, "poll attempt budget (0 = unbounded)")
	fs.DurationVar(&pollCfg.MaxDuration, "max-duration", pollCfg.MaxDuration, "poll time budget (0 = unbounded)")
	if err := parseFlags(fs, args); err != nil {
		return ignoreHelp(err)
	}
	if maxStops >= 0 {
		opts.MaxStops = &maxStops
	}
	if priceMax > 0 {
		opts.PriceMax = &priceMax
	}

	svc := search.NewService(a.client, pollCfg, search.WithLogger(a.logger))
	poller, err := svc.Start(ctx, req)
	if err != nil {
		return err
	}
	session, err := poller.Run(ctx)

	// Vendors may answer with other cabins or with connections; only what
	// was asked for is shown and kept for `cart add`.
	opts.CabinClass = req.CabinClass
	opts.DirectOnly = req.DirectOnly
	session.Results = poller.Aggregator().View(opts)

	data, merr := json.Marshal(lastSearch{Request: req, Session: session})
	if merr == nil {
		if serr := a.storage.Set(ctx, lastSearchKey, data); serr != nil {
			a.logger.Warn("failed to save last search", "error", serr)
		}
	}

	switch {
	case session.NoFlights:
		fmt.Fprintln(a.out, "No flights found.")
		return nil
	case session.Stalled:
		fmt.Fprintf(a.out, "Search stalled at %d%%; showing partial results.\n", session.CompletionPercent)
	case session.Partial:
		fmt.Fprintf(a.out, "Connection lost at %d%%; showing partial results.\n", session.CompletionPercent)
	}

	printResults(a.out, session.Results)
	return err
}

func printResults(w io.Writer, results []models.FlightResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROUTE\tDEPART\tARRIVE\tSTOPS\tDURATION\tCARRIERS\tPRICE")
	for _, r := range results {
		if len(r.Legs) == 0 {
			continue
		}
		first, last := r.Legs[0], r.Legs[len(r.Legs)-1]
		fmt.Fprintf(tw, "%s\t%s-%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			r.Key(),
			first.Origin, last.Destination,
			timezone.LocalTime(first.Departure, first.Origin).Format("Jan 02 15:04"),
			timezone.LocalTime(last.Arrival, last.Destination).Format("Jan 02 15:04"),
			r.Stops(),
			formatMinutes(r.TotalMinutes()),
			strings.Join(r.Carriers(), ","),
			currency.Format(r.Price, r.Currency),
		)
	}
	tw.Flush()
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%dh%02dm", m/60, m%60)
}

func (a *app) runCart(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}

	switch args[0] {
	case "list":
		lines, err := a.bridge.Lines(ctx)
		if err != nil {
			return err
		}
		printCart(a.out, lines)
		return nil

	case "add":
		var p models.PassengerCounts
		fs := pflag.NewFlagSet("cart add", pflag.ContinueOnError)
		fs.SetOutput(a.out)
		fs.IntVar(&p.Adults, "adults", 0, "adult passengers (default: from the last search)")
		fs.IntVar(&p.Children, "children", 0, "child passengers")
		fs.IntVar(&p.Infants, "infants", 0, "infant passengers")
		if err := parseFlags(fs, args[1:]); err != nil {
			return ignoreHelp(err)
		}
		if fs.NArg() != 1 {
			return usagef("cart add takes exactly one flight id")
		}

		last, err := a.loadLastSearch(ctx)
		if err != nil {
			return err
		}
		agg := aggregator.NewAggregator()
		agg.Merge(last.Session.Results)
		result, ok := agg.Get(fs.Arg(0))
		if !ok {
			return fmt.Errorf("flight %q is not in the last search", fs.Arg(0))
		}
		if p.Adults == 0 {
			p = last.Request.Passengers
		}

		line, err := a.bridge.AddToCart(ctx, result, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Added %s as %s\n", result.Key(), line.BookingID)
		return nil

	case "remove":
		if len(args) != 2 {
			return usagef("cart remove takes exactly one booking id")
		}
		if err := a.bridge.RemoveFromCart(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Removed %s\n", args[1])
		return nil

	case "quantity":
		if len(args) != 3 {
			return usagef("cart quantity takes a booking id and a number")
		}
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return usagef("quantity must be a number: %v", err)
		}
		line, err := a.bridge.UpdateQuantity(ctx, args[1], n)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s quantity is now %d\n", line.BookingID, line.Quantity)
		return nil
	}

	return usagef("unknown cart command %q", args[0])
}

func printCart(w io.Writer, lines []models.CartLine) {
	if len(lines) == 0 {
		fmt.Fprintln(w, "Cart is empty.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BOOKING\tFLIGHT\tPASSENGERS\tQTY\tSTATUS\tAMOUNT")
	for _, l := range lines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			l.BookingID, l.Flight.Key(), l.Passengers.Total(), l.Quantity, l.Status,
			currency.Format(l.Amount(), l.Flight.Currency))
	}
	tw.Flush()
}

func (a *app) runCheckout(ctx context.Context, args []string) error {
	var customer string
	fs := pflag.NewFlagSet("checkout", pflag.ContinueOnError)
	fs.SetOutput(a.out)
	fs.StringVar(&customer, "customer", "", "contact email for the booking")
	if err := parseFlags(fs, args); err != nil {
		return ignoreHelp(err)
	}

	booking, err := a.bridge.Checkout(ctx, customer)
	if err != nil {
		if errors.Is(err, cart.ErrBookingMutationFailed) {
			return fmt.Errorf("%w (your cart was not changed)", err)
		}
		return err
	}
	return a.printConfirmation(ctx, booking.ID)
}

func (a *app) runBooking(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usagef("booking takes exactly one booking id")
	}
	return a.printConfirmation(ctx, args[0])
}

func (a *app) printConfirmation(ctx context.Context, id string) error {
	text, err := a.client.Confirmation(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, text)
	return nil
}

func runToken(cfg config.Client, args []string, out io.Writer) error {
	ttl := cfg.JWTTTL
	fs := pflag.NewFlagSet("token", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.DurationVar(&ttl, "ttl", ttl, "token lifetime")
	if err := parseFlags(fs, args); err != nil {
		return ignoreHelp(err)
	}
	if fs.NArg() != 1 {
		return usagef("token takes exactly one user id")
	}

	token, err := auth.NewIssuer(cfg.JWTSecret, ttl).Issue(fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

func (a *app) loadLastSearch(ctx context.Context) (lastSearch, error) {
	data, ok, err := a.storage.Get(ctx, lastSearchKey)
	if err != nil {
		return lastSearch{}, err
	}
	if !ok {
		return lastSearch{}, errors.New("no saved search, run `flightsearch search` first")
	}
	var last lastSearch
	if err := json.Unmarshal(data, &last); err != nil {
		return lastSearch{}, fmt.Errorf("failed to read last search: %w", err)
	}
	return last, nil
}

func ignoreHelp(err error) error {
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	return err
}
