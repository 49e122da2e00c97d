// cbrconv converts amounts between currencies using the Central Bank of
// Russia daily reference rates.
package main

import (
	"context"
	"cbr-rate-converter/app"
	"cbr-rate-converter/cbr"
	"cbr-rate-converter/config"
	"cbr-rate-converter/domain"
	"cbr-rate-converter/exchange"
	"cbr-rate-converter/http"
	"errors"
	"fmt"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
)

// application is built once the config is loaded
var application *app.App

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cbrconv",
	Short: "Currency converter backed by the CBR daily rates",
	Long: `cbrconv fetches the daily reference rates published by the Central Bank
of Russia and converts amounts between any two listed currencies through RUB.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Log.Level = lvl
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		application = app.New(cfg, app.NewLogger(os.Stderr, cfg.Log))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml, then ~/.cbrconv/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(ratesCmd)
	rootCmd.AddCommand(codesCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(serveCmd)
}

// --- Rates Command ---

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Print today's rate table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := application.Cache.Rates(cmd.Context())
		if err != nil {
			return err
		}
		return printRates(cmd.OutOrStdout(), table)
	},
}

func printRates(w io.Writer, table *domain.RateTable) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNOMINAL\tNAME\tRUB")
	for _, e := range table.Entries() {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", e.Code, e.Nominal, e.Name, decimal.NewFromFloat(e.Value).String())
	}
	return tw.Flush()
}

// --- Codes Command ---

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "List the supported currency codes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		codes, err := application.Exchange.Currencies(cmd.Context())
		if err != nil {
			return err
		}
		for _, code := range codes {
			fmt.Fprintln(cmd.OutOrStdout(), code)
		}
		return nil
	},
}

// --- Convert Command ---

var convertCmd = &cobra.Command{
	Use:     "convert AMOUNT FROM TO",
	Short:   "Convert an amount from one currency to another",
	Example: "  cbrconv convert 100 USD RUB\n  cbrconv convert 12,5 eur usd",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd.Context(), cmd.OutOrStdout(), application.Exchange, args[0], args[1], args[2])
	},
}

func runConvert(ctx context.Context, w io.Writer, s exchange.Service, rawAmount, rawFrom, rawTo string) error {
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return err
	}
	from := exchange.NormalizeCode(domain.Currency(rawFrom))
	to := exchange.NormalizeCode(domain.Currency(rawTo))

	result, err := s.Convert(ctx, amount, from, to)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s = %s %s\n", http.FormatAmount(amount, 2), from, http.FormatAmount(result.Amount, 4), to)

	if result.From.Code == "" || result.To.Code == "" {
		return nil
	}
	fmt.Fprintf(w, "Курс ЦБ: %s RUB за %d %s; %s RUB за %d %s\n",
		decimal.NewFromFloat(result.From.Value).String(), result.From.Nominal, result.From.Code,
		decimal.NewFromFloat(result.To.Value).String(), result.To.Nominal, result.To.Code)
	return nil
}

// parseAmount accepts both "12.5" and "12,5"
func parseAmount(s string) (domain.Amount, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return domain.Amount(v), nil
}

// --- Serve Command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return application.Serve(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address override")
	serveCmd.PreRun = func(cmd *cobra.Command, args []string) {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			application.Config.Server.Addr = addr
		}
	}
}

// describe turns an error into a message for the terminal
func describe(err error) string {
	var conversionError *exchange.ConversionError
	var fetchError *cbr.FetchError
	var parseError *cbr.ParseError

	switch {
	case errors.As(err, &conversionError):
		return "error: " + conversionError.Error()
	case errors.As(err, &fetchError):
		msg := "could not load CBR rates: " + fetchError.Error()
		if fetchError.Temporary() {
			msg += " (try again later)"
		}
		return msg
	case errors.As(err, &parseError):
		return "CBR page not understood: " + parseError.Error()
	}
	return "error: " + err.Error()
}
