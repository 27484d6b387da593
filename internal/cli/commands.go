package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/market-proxy/internal/app"
	"github.com/samvad-hq/market-proxy/internal/config"
	"github.com/samvad-hq/market-proxy/internal/domain"
	"github.com/samvad-hq/market-proxy/internal/logger"
	"github.com/samvad-hq/market-proxy/pkg/chart"
	"github.com/samvad-hq/market-proxy/pkg/fundcsv"
	"github.com/samvad-hq/market-proxy/pkg/proxy"
)

// runtimeFactory builds the runtime for a command. Tests replace it.
type runtimeFactory func() (*app.Runtime, func(), error)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(loadRuntime)
}

func newRootCmd(build runtimeFactory) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "marketproxy",
		Short: "Market data proxy for the portfolio desktop app",
		Long: `marketproxy fetches Yahoo Finance charts and Toushin Library fund CSVs
on behalf of a UI that cannot call them directly.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd(build))
	rootCmd.AddCommand(newInvokeCmd(build))
	rootCmd.AddCommand(newQuoteCmd(build))
	rootCmd.AddCommand(newFundCmd(build))

	return rootCmd
}

func loadRuntime() (*app.Runtime, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	rt, err := app.NewRuntime(cfg, log)
	if err != nil {
		_ = logger.Close()
		return nil, nil, err
	}
	return rt, func() { _ = logger.Close() }, nil
}

// newServeCmd creates the serve command
func newServeCmd(build runtimeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, closeFn, err := build()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return rt.Serve(ctx)
		},
	}
}

// newInvokeCmd creates the invoke command
func newInvokeCmd(build runtimeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "invoke COMMAND [JSON_PARAMS]",
		Short: "Dispatch a registered command",
		Long: `Dispatch a registered command with JSON params, e.g.
  marketproxy invoke fetch_yahoo_finance '{"symbol":"AAPL","range":"5d"}'
Params are read from stdin when omitted.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params []byte
			if len(args) == 2 {
				params = []byte(args[1])
			} else {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read params: %w", err)
				}
				params = raw
			}

			rt, closeFn, err := build()
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := rt.Registry().Invoke(commandContext(cmd), args[0], json.RawMessage(params))
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), result)
		},
	}
}

// newQuoteCmd creates the quote command
func newQuoteCmd(build runtimeFactory) *cobra.Command {
	var (
		req     domain.QuoteRequest
		summary bool
		closes  bool
	)
	cmd := &cobra.Command{
		Use:   "quote SYMBOL",
		Short: "Fetch a Yahoo Finance chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Symbol = args[0]
			if summary && closes {
				return fmt.Errorf("--summary and --closes are mutually exclusive")
			}
			if err := proxy.ValidateQuoteRequest(req); err != nil {
				return err
			}

			rt, closeFn, err := build()
			if err != nil {
				return err
			}
			defer closeFn()

			value, err := rt.Service().FetchQuote(commandContext(cmd), req)
			if err != nil {
				return err
			}
			if summary {
				s, err := chart.Summarize(req.Symbol, value)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), s)
			}
			if closes {
				points, err := chart.DailyCloses(value)
				if err != nil {
					return err
				}
				out, err := fundcsv.Marshal(points)
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), out)
				return err
			}
			return printResult(cmd.OutOrStdout(), value)
		},
	}

	cmd.Flags().StringVar(&req.RangeStart, "period1", "", "Range start (unix seconds); used only with --period2")
	cmd.Flags().StringVar(&req.RangeEnd, "period2", "", "Range end (unix seconds); used only with --period1")
	cmd.Flags().StringVar(&req.Interval, "interval", "", "Bar interval (default 1d)")
	cmd.Flags().StringVar(&req.Range, "range", "", "Symbolic range when no explicit range is given (default 1d)")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print only symbol, price and currency")
	cmd.Flags().BoolVar(&closes, "closes", false, "Print date,close rows instead of the chart JSON")

	return cmd
}

// newFundCmd creates the fund command
func newFundCmd(build runtimeFactory) *cobra.Command {
	var prices bool
	cmd := &cobra.Command{
		Use:   "fund ISIN_CODE ASSOCIATED_FUND_CODE",
		Short: "Fetch a Toushin Library fund CSV as UTF-8",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := domain.FundRequest{ISINCode: args[0], AssociatedFundCode: args[1]}
			if err := proxy.ValidateFundRequest(req); err != nil {
				return err
			}

			rt, closeFn, err := build()
			if err != nil {
				return err
			}
			defer closeFn()

			text, err := rt.Service().FetchFund(commandContext(cmd), req)
			if err != nil {
				return err
			}
			if !prices {
				_, err = io.WriteString(cmd.OutOrStdout(), text)
				return err
			}

			points, err := fundcsv.Parse(text)
			if err != nil {
				return err
			}
			out, err := fundcsv.Marshal(points)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().BoolVar(&prices, "prices", false, "Print parsed date,price rows instead of the raw CSV")

	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printResult(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
