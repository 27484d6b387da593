package cli

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/samvad-hq/market-proxy/internal/app"
	"github.com/samvad-hq/market-proxy/internal/config"
	"github.com/samvad-hq/market-proxy/pkg/proxy"
	"golang.org/x/text/encoding/japanese"
)

func testFactory(t *testing.T) runtimeFactory {
	t.Helper()

	fund, err := japanese.ShiftJIS.NewEncoder().String("年月日,基準価額(円)\r\n2024年01月04日,23456\r\n")
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/csv") {
			_, _ = w.Write([]byte(fund))
			return
		}
		_, _ = w.Write([]byte(`{"chart":{"result":[],"query":"` + r.URL.RawQuery + `"}}`))
	}))
	t.Cleanup(srv.Close)

	return func() (*app.Runtime, func(), error) {
		rt, err := app.NewRuntime(&config.Config{
			QuoteBaseURL:    srv.URL + "/chart",
			FundBaseURL:     srv.URL + "/csv",
			ShutdownTimeout: time.Second,
		}, nil)
		return rt, func() {}, err
	}
}

func execute(t *testing.T, build runtimeFactory, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(build)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestQuoteCommand(t *testing.T) {
	out, err := execute(t, testFactory(t), "", "quote", "AAPL", "--period1", "1", "--period2", "2")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !strings.Contains(out, `"query": "period1=1&period2=2&interval=1d"`) {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestInvokeCommandFromStdin(t *testing.T) {
	out, err := execute(t, testFactory(t), `{"symbol":"7203.T","range":"5d"}`, "invoke", proxy.CommandFetchYahooFinance)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if !strings.Contains(out, `"query": "interval=1d&range=5d"`) {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestInvokeUnknownCommand(t *testing.T) {
	_, err := execute(t, testFactory(t), "", "invoke", "fetch_weather", `{}`)
	if !errors.Is(err, proxy.ErrUnknownCommand) {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestFundCommand(t *testing.T) {
	out, err := execute(t, testFactory(t), "", "fund", "JP90C000H1T1", "0331418A")
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if out != "年月日,基準価額(円)\r\n2024年01月04日,23456\r\n" {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = execute(t, testFactory(t), "", "fund", "JP90C000H1T1", "0331418A", "--prices")
	if err != nil {
		t.Fatalf("fund --prices: %v", err)
	}
	if out != "date,price\n2024-01-04,23456\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestQuoteClosesCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"currency":"JPY"},` +
			`"timestamp":[1704326400,1704412800],` +
			`"indicators":{"quote":[{"close":[2875.5,2890]}]}}]}}`))
	}))
	t.Cleanup(srv.Close)
	build := func() (*app.Runtime, func(), error) {
		rt, err := app.NewRuntime(&config.Config{
			QuoteBaseURL:    srv.URL + "/chart",
			FundBaseURL:     srv.URL + "/csv",
			ShutdownTimeout: time.Second,
		}, nil)
		return rt, func() {}, err
	}

	out, err := execute(t, build, "", "quote", "7203.T", "--range", "5d", "--closes")
	if err != nil {
		t.Fatalf("quote --closes: %v", err)
	}
	if out != "date,price\n2024-01-04,2875.5\n2024-01-05,2890\n" {
		t.Fatalf("unexpected output %q", out)
	}

	if _, err := execute(t, build, "", "quote", "7203.T", "--closes", "--summary"); err == nil {
		t.Fatalf("expected error when combining --closes and --summary")
	}
}
