// Package schwab implements the execution port against the Schwab
// trader REST API. DRY_RUN mode simulates balances, quotes and fills in
// memory so the rest of the system can run without credentials.
package schwab

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"options-pilot/internal/api"
	"options-pilot/internal/interfaces"
	"options-pilot/internal/types"
)

const defaultBaseURL = "https://api.schwabapi.com/trader/v1"

type Params struct {
	Mode         string // DRY_RUN or LIVE
	ClientID     string
	ClientSecret string
	AccessToken  string
	AccountHash  string
	BaseURL      string
	Capital      float64
}

type Client struct {
	p   Params
	api *api.Client

	mu           sync.Mutex
	simPositions []types.Position
	simPnL       float64
	simLast      map[string]float64
}

var (
	_ interfaces.Execution = (*Client)(nil)
	_ interfaces.Quoter    = (*Client)(nil)
)

func New(p Params) *Client {
	if p.BaseURL == "" {
		p.BaseURL = defaultBaseURL
	}
	c := &Client{p: p, simLast: make(map[string]float64)}
	c.api = api.NewClient(
		api.WithBaseURL(p.BaseURL),
		api.WithTimeout(15*time.Second),
		api.WithHeader("Authorization", "Bearer "+p.AccessToken),
		api.WithLogging(true),
	)
	return c
}

func (c *Client) dryRun() bool { return c.p.Mode == "DRY_RUN" }

func (c *Client) checkCreds() error {
	if c.p.ClientID == "" || c.p.AccessToken == "" {
		return errors.New("schwab: missing client id or access token")
	}
	if c.p.AccountHash == "" {
		return errors.New("schwab: missing account hash")
	}
	return nil
}

func (c *Client) AccountBalance(ctx context.Context) (float64, error) {
	if c.dryRun() {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.p.Capital + c.simPnL, nil
	}
	if err := c.checkCreds(); err != nil {
		return 0, err
	}

	resp, err := c.api.GET(ctx, "/accounts/"+c.p.AccountHash)
	if err != nil {
		return 0, fmt.Errorf("schwab: account fetch failed: %w", err)
	}
	var body struct {
		SecuritiesAccount struct {
			CurrentBalances struct {
				LiquidationValue float64 `json:"liquidationValue"`
			} `json:"currentBalances"`
		} `json:"securitiesAccount"`
	}
	if err := resp.ParseJSON(&body); err != nil {
		return 0, err
	}
	return body.SecuritiesAccount.CurrentBalances.LiquidationValue, nil
}

func (c *Client) Positions(ctx context.Context) ([]types.Position, error) {
	if c.dryRun() {
		c.mu.Lock()
		defer c.mu.Unlock()
		out := make([]types.Position, len(c.simPositions))
		copy(out, c.simPositions)
		return out, nil
	}
	if err := c.checkCreds(); err != nil {
		return nil, err
	}

	resp, err := c.api.GET(ctx, "/accounts/"+c.p.AccountHash+"?fields=positions")
	if err != nil {
		return nil, fmt.Errorf("schwab: positions fetch failed: %w", err)
	}
	var body struct {
		SecuritiesAccount struct {
			Positions []struct {
				Instrument struct {
					Symbol      string `json:"symbol"`
					Description string `json:"description"`
				} `json:"instrument"`
				LongQuantity  float64 `json:"longQuantity"`
				ShortQuantity float64 `json:"shortQuantity"`
				CurrentDayPnL float64 `json:"currentDayProfitLoss"`
				PnLPct        float64 `json:"currentDayProfitLossPercentage"`
			} `json:"positions"`
		} `json:"securitiesAccount"`
	}
	if err := resp.ParseJSON(&body); err != nil {
		return nil, err
	}

	// The positions endpoint carries no order identifiers, so positions
	// fetched here cannot be closed by order id; only orders placed by
	// this process are closeable.
	positions := make([]types.Position, 0, len(body.SecuritiesAccount.Positions))
	for _, p := range body.SecuritiesAccount.Positions {
		qty := int(p.LongQuantity - p.ShortQuantity)
		positions = append(positions, types.Position{
			Symbol:      p.Instrument.Symbol,
			Description: p.Instrument.Description,
			Quantity:    qty,
			PnL:         p.CurrentDayPnL,
			PnLPct:      p.PnLPct,
		})
	}
	return positions, nil
}

func (c *Client) TodayPnL(ctx context.Context) (float64, error) {
	if c.dryRun() {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.simPnL, nil
	}

	positions, err := c.Positions(ctx)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, p := range positions {
		total += p.PnL
	}
	return total, nil
}

func (c *Client) Quote(ctx context.Context, symbol string) (types.Quote, error) {
	if c.dryRun() {
		return c.simQuote(symbol), nil
	}
	if err := c.checkCreds(); err != nil {
		return types.Quote{}, err
	}

	resp, err := c.api.GET(ctx, "/quotes?symbols="+symbol)
	if err != nil {
		return types.Quote{}, fmt.Errorf("schwab: quote fetch failed: %w", err)
	}
	var body map[string]struct {
		Quote struct {
			LastPrice  float64 `json:"lastPrice"`
			HighPrice  float64 `json:"highPrice"`
			LowPrice   float64 `json:"lowPrice"`
			ClosePrice float64 `json:"closePrice"`
		} `json:"quote"`
	}
	if err := resp.ParseJSON(&body); err != nil {
		return types.Quote{}, err
	}
	q, ok := body[symbol]
	if !ok {
		return types.Quote{}, fmt.Errorf("schwab: no quote for %s", symbol)
	}
	return types.Quote{
		Symbol:    symbol,
		Last:      q.Quote.LastPrice,
		High:      q.Quote.HighPrice,
		Low:       q.Quote.LowPrice,
		PrevClose: q.Quote.ClosePrice,
	}, nil
}

// simQuote random-walks a per-symbol price so consecutive cycles look
// like a moving market.
func (c *Client) simQuote(symbol string) types.Quote {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.simLast[symbol]
	if !ok {
		last = 400 + rand.Float64()*100
	}
	prev := last
	last += (rand.Float64() - 0.5) * 2
	c.simLast[symbol] = last

	return types.Quote{
		Symbol:    symbol,
		Last:      last,
		High:      last + rand.Float64()*3,
		Low:       last - rand.Float64()*3,
		PrevClose: prev,
	}
}

func (c *Client) PlaceIronCondor(ctx context.Context, symbol string, strikes types.IronCondorStrikes, qty int) (string, error) {
	if c.dryRun() {
		return c.simFill(symbol, fmt.Sprintf("%s iron condor %g/%g/%g/%g",
			symbol, strikes.LongPut, strikes.ShortPut, strikes.ShortCall, strikes.LongCall), qty), nil
	}
	if err := c.checkCreds(); err != nil {
		return "", err
	}

	order := map[string]any{
		"orderType":          "NET_CREDIT",
		"session":            "NORMAL",
		"price":              strikes.Credit,
		"duration":           "DAY",
		"orderStrategyType":  "SINGLE",
		"complexOrderStrategyType": "IRON_CONDOR",
		"orderLegCollection": []map[string]any{
			optionLeg(symbol, strikes.Expiration, "CALL", strikes.ShortCall, "SELL_TO_OPEN", qty),
			optionLeg(symbol, strikes.Expiration, "CALL", strikes.LongCall, "BUY_TO_OPEN", qty),
			optionLeg(symbol, strikes.Expiration, "PUT", strikes.ShortPut, "SELL_TO_OPEN", qty),
			optionLeg(symbol, strikes.Expiration, "PUT", strikes.LongPut, "BUY_TO_OPEN", qty),
		},
	}
	return c.placeOrder(ctx, order)
}

func (c *Client) PlaceCreditSpread(ctx context.Context, symbol string, strikes types.CreditSpreadStrikes, qty int) (string, error) {
	if c.dryRun() {
		return c.simFill(symbol, fmt.Sprintf("%s %s credit spread %g/%g",
			symbol, strikes.Side, strikes.ShortStrike, strikes.LongStrike), qty), nil
	}
	if err := c.checkCreds(); err != nil {
		return "", err
	}

	order := map[string]any{
		"orderType":          "NET_CREDIT",
		"session":            "NORMAL",
		"price":              strikes.Credit,
		"duration":           "DAY",
		"orderStrategyType":  "SINGLE",
		"complexOrderStrategyType": "VERTICAL",
		"orderLegCollection": []map[string]any{
			optionLeg(symbol, strikes.Expiration, string(strikes.Side), strikes.ShortStrike, "SELL_TO_OPEN", qty),
			optionLeg(symbol, strikes.Expiration, string(strikes.Side), strikes.LongStrike, "BUY_TO_OPEN", qty),
		},
	}
	return c.placeOrder(ctx, order)
}

func (c *Client) PlaceCoveredCall(ctx context.Context, symbol string, strike float64, expiration string, qty int) (string, error) {
	if c.dryRun() {
		return c.simFill(symbol, fmt.Sprintf("%s covered call %g", symbol, strike), qty), nil
	}
	if err := c.checkCreds(); err != nil {
		return "", err
	}

	order := map[string]any{
		"orderType":         "LIMIT",
		"session":           "NORMAL",
		"duration":          "DAY",
		"orderStrategyType": "SINGLE",
		"orderLegCollection": []map[string]any{
			optionLeg(symbol, expiration, "CALL", strike, "SELL_TO_OPEN", qty),
		},
	}
	return c.placeOrder(ctx, order)
}

func (c *Client) ClosePosition(ctx context.Context, orderID string) (bool, error) {
	if c.dryRun() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, p := range c.simPositions {
			if p.OrderID == orderID {
				c.simPositions = append(c.simPositions[:i], c.simPositions[i+1:]...)
				return true, nil
			}
		}
		return false, nil
	}
	if err := c.checkCreds(); err != nil {
		return false, err
	}

	_, err := c.api.DELETE(ctx, "/accounts/"+c.p.AccountHash+"/orders/"+orderID)
	if err != nil {
		return false, fmt.Errorf("schwab: cancel failed: %w", err)
	}
	return true, nil
}

func (c *Client) placeOrder(ctx context.Context, order map[string]any) (string, error) {
	resp, err := c.api.POST(ctx, "/accounts/"+c.p.AccountHash+"/orders", order)
	if err != nil {
		return "", fmt.Errorf("schwab: order placement failed: %w", err)
	}

	// Schwab returns the order id in the Location header.
	loc := resp.Headers.Get("Location")
	if loc == "" {
		return "", errors.New("schwab: order accepted but no order id returned")
	}
	return lastPathSegment(loc), nil
}

func (c *Client) simFill(symbol, description string, qty int) string {
	orderID := fmt.Sprintf("SIM-%d", time.Now().UnixNano())
	c.mu.Lock()
	c.simPositions = append(c.simPositions, types.Position{
		Symbol:      symbol,
		Description: description,
		Quantity:    qty,
		OrderID:     orderID,
	})
	c.mu.Unlock()
	return orderID
}

func optionLeg(symbol, expiration, putCall string, strike float64, instruction string, qty int) map[string]any {
	return map[string]any{
		"instruction": instruction,
		"quantity":    qty,
		"instrument": map[string]any{
			"assetType": "OPTION",
			"symbol":    optionSymbol(symbol, expiration, putCall, strike),
		},
	}
}

// optionSymbol builds the OCC-style symbol Schwab expects:
// underlying padded to 6, YYMMDD, C/P, strike*1000 padded to 8.
func optionSymbol(symbol, expiration, putCall string, strike float64) string {
	exp, err := time.Parse("2006-01-02", expiration)
	if err != nil {
		exp = time.Now()
	}
	return fmt.Sprintf("%-6s%s%s%08d",
		symbol,
		exp.Format("060102"),
		putCall[:1],
		int(strike*1000),
	)
}

func lastPathSegment(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return s[i+1:]
		}
	}
	return s
}
