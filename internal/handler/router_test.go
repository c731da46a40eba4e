package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/evanreis/predictex/internal/dispatch"
	"github.com/evanreis/predictex/internal/engine"
	"github.com/evanreis/predictex/internal/ledger"
	"github.com/evanreis/predictex/internal/snapshot"
)

func newTestServer(t *testing.T) (*httptest.Server, *dispatch.Dispatcher) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	disp := dispatch.New(engine.NewBooks(), ledger.New(), snapshot.NewStore(t.TempDir()), logger)
	srv := httptest.NewServer(NewRouter(disp, logger))
	t.Cleanup(srv.Close)
	return srv, disp
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestRouter_Healthz(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]string
	if code := getJSON(t, srv.URL+"/healthz", &body); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestRouter_Status(t *testing.T) {
	srv, disp := newTestServer(t)
	disp.Dispatch(dispatch.Command{Type: dispatch.CmdCreateUser, Data: dispatch.CommandData{UserID: "u1"}})
	disp.Dispatch(dispatch.Command{Type: dispatch.CmdCreateSymbol, Data: dispatch.CommandData{StockSymbol: "RAIN"}})

	var stats dispatch.Stats
	if code := getJSON(t, srv.URL+"/status", &stats); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if stats.Users != 1 || stats.Symbols != 1 {
		t.Errorf("stats = %+v, want 1 user and 1 symbol", stats)
	}
}

func TestRouter_Orderbook(t *testing.T) {
	srv, disp := newTestServer(t)
	disp.Dispatch(dispatch.Command{Type: dispatch.CmdCreateUser, Data: dispatch.CommandData{UserID: "u1"}})
	disp.Dispatch(dispatch.Command{Type: dispatch.CmdCreateSymbol, Data: dispatch.CommandData{StockSymbol: "RAIN"}})
	disp.Dispatch(dispatch.Command{Type: dispatch.CmdOnrampUserBalance, Data: dispatch.CommandData{UserID: "u1", Amount: 10000}})
	disp.Dispatch(dispatch.Command{
		Type: dispatch.CmdBuyOrder,
		Data: dispatch.CommandData{UserID: "u1", StockSymbol: "RAIN", StockType: "yes", Price: 4, Quantity: 10},
	})

	var book struct {
		No []struct {
			Price int64 `json:"price"`
			Total int64 `json:"total"`
		} `json:"no"`
	}
	if code := getJSON(t, srv.URL+"/orderbook/RAIN", &book); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(book.No) != 1 || book.No[0].Price != 6 || book.No[0].Total != 10 {
		t.Errorf("book = %+v", book)
	}

	if code := getJSON(t, srv.URL+"/orderbook/SNOW", nil); code != http.StatusNotFound {
		t.Errorf("unknown symbol status = %d, want 404", code)
	}
}
