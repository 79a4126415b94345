// flightsearch is a terminal client for the flight booking API. It runs a
// search to completion, keeps the merged results so a flight can be picked
// by id, and manages the cart through checkout.
//
// Without a token the cart lives in the local data directory and nothing
// is sent to the server until checkout. With --token (or
// FLIGHTBOOKING_TOKEN) the server-side cart is used.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/dharmasatrya/flightbooking/internal/cart"
	"github.com/dharmasatrya/flightbooking/internal/client"
	"github.com/dharmasatrya/flightbooking/internal/config"
)

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var ue *usageError
		if errors.As(err, &ue) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// app carries what every subcommand needs.
type app struct {
	cfg     config.Client
	client  *client.Client
	storage cart.Storage
	bridge  *cart.Bridge
	logger  *slog.Logger
	out     io.Writer
}

func run(ctx context.Context, args []string, out io.Writer) error {
	var (
		envFile string
		verbose bool
		apiURL  string
		token   string
		dataDir string
	)

	flagSet := pflag.NewFlagSet("flightsearch", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&envFile, "env-file", ".env", "load environment variables from this file")
	flagSet.StringVar(&apiURL, "api", "", "API base URL (default $FLIGHTBOOKING_API_URL)")
	flagSet.StringVar(&token, "token", "", "bearer token (default $FLIGHTBOOKING_TOKEN)")
	flagSet.StringVar(&dataDir, "data-dir", "", "local cart and last-search directory (default $FLIGHTBOOKING_DATA_DIR)")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
	flagSet.Usage = func() { printUsage(out, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return usagef("%v", err)
	}

	config.LoadDotEnv(envFile)
	cfg := config.LoadClient()
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	if flagSet.Changed("token") {
		cfg.Token = token
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(out, flagSet)
		return usagef("missing command")
	}

	// token needs neither the API nor local storage.
	if rest[0] == "token" {
		return runToken(cfg, rest[1:], out)
	}

	commands := map[string]func(*app, context.Context, []string) error{
		"search":   (*app).runSearch,
		"cart":     (*app).runCart,
		"checkout": (*app).runCheckout,
		"booking":  (*app).runBooking,
	}
	command, ok := commands[rest[0]]
	if !ok {
		return usagef("unknown command %q", rest[0])
	}

	a, err := newApp(cfg, logger, out)
	if err != nil {
		return err
	}
	return command(a, ctx, rest[1:])
}

func newApp(cfg config.Client, logger *slog.Logger, out io.Writer) (*app, error) {
	cl, err := client.New(client.Config{BaseURL: cfg.APIURL, Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	storage, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}
	bridge := cart.NewBridge(cl,
		cart.NewLocalCart(storage, cart.DefaultStorageKey, cl),
		cart.NewRemoteCart(cl),
		cart.WithLogger(logger),
	)
	return &app{cfg: cfg, client: cl, storage: storage, bridge: bridge, logger: logger, out: out}, nil
}

// openStorage picks the anonymous cart store. The last search always goes
// with the cart so `cart add` resolves ids from the same place.
func openStorage(cfg config.Client) (cart.Storage, error) {
	if cfg.RedisURL == "" {
		return cart.NewFileStorage(cfg.DataDir)
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return cart.NewRedisStorage(redis.NewClient(opts), "flightbooking:", cfg.RedisCartTTL), nil
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `Usage: flightsearch [flags] <command> [args]

Commands:
  search      run a flight search and list the results
  cart        list | add <flight-id> | remove <booking-id> | quantity <booking-id> <n>
  checkout    book every pending cart line
  booking     print the confirmation of a booking
  token       issue a development bearer token for a user id

Flags:
%s`, flagSet.FlagUsages())
}
