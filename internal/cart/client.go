package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cartrules/pkg/logging"
)

const (
	readPath   = "/cart.js"
	addPath    = "/cart/add.js"
	changePath = "/cart/change.js"
)

// ClientConfig configures the storefront cart client.
type ClientConfig struct {
	// BaseURL is the storefront origin, e.g. https://shop.example.com.
	BaseURL string

	// Cookie is sent verbatim on every request and selects the cart session
	// (for Shopify storefronts, "cart=<token>").
	Cookie string

	// Timeout bounds each request. Defaults to 10 seconds.
	Timeout time.Duration
}

// Client talks to the storefront AJAX cart API.
type Client struct {
	baseURL    string
	cookie     string
	httpClient *http.Client
}

// NewClient creates a cart client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		cookie:     cfg.Cookie,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// wireCart mirrors the fields of /cart.js the engine consumes.
type wireCart struct {
	Token      string     `json:"token"`
	TotalPrice int64      `json:"total_price"`
	ItemCount  int        `json:"item_count"`
	Items      []wireItem `json:"items"`
}

type wireItem struct {
	ID       json.Number `json:"id"`
	Quantity int         `json:"quantity"`
}

// wireError is the error body returned by the cart API.
type wireError struct {
	Message     string `json:"message"`
	Description string `json:"description"`
}

// Read fetches the current cart.
func (c *Client) Read(ctx context.Context) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+readPath, nil)
	if err != nil {
		return Snapshot{}, err
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read cart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, statusError("read", resp)
	}

	var wc wireCart
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&wc); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse cart: %w", err)
	}

	snap := Snapshot{
		TotalMinor: wc.TotalPrice,
		ItemCount:  wc.ItemCount,
		Token:      wc.Token,
		Items:      make([]Item, 0, len(wc.Items)),
	}
	for _, item := range wc.Items {
		snap.Items = append(snap.Items, Item{ProductID: item.ID.String(), Quantity: item.Quantity})
	}

	logging.Debug("CartClient", "Read cart token=%s total=%d items=%d", snap.Token, snap.TotalMinor, snap.ItemCount)
	return snap, nil
}

// Add adds qty units of productID to the cart.
func (c *Client) Add(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		qty = 1
	}
	if err := c.post(ctx, "add", addPath, productID, qty); err != nil {
		logging.Warn("CartClient", "Could not add product %s: %v", productID, err)
		return err
	}
	logging.Info("CartClient", "Added product %s to cart", productID)
	return nil
}

// Remove sets the quantity of productID to zero.
func (c *Client) Remove(ctx context.Context, productID string) error {
	if err := c.post(ctx, "change", changePath, productID, 0); err != nil {
		logging.Warn("CartClient", "Could not remove product %s: %v", productID, err)
		return err
	}
	logging.Info("CartClient", "Removed product %s from cart", productID)
	return nil
}

func (c *Client) post(ctx context.Context, op, path, productID string, qty int) error {
	body, err := json.Marshal(map[string]any{
		"id":       wireID(productID),
		"quantity": qty,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cart %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(op, resp)
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
}

// wireID sends numeric variant ids as JSON numbers, which the cart API expects,
// and anything else (line item keys) as strings.
func wireID(productID string) any {
	if _, err := strconv.ParseInt(productID, 10, 64); err == nil {
		return json.Number(productID)
	}
	return productID
}

func statusError(op string, resp *http.Response) error {
	var we wireError
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	_ = json.Unmarshal(data, &we)

	description := we.Description
	if description == "" {
		description = we.Message
	}
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Description: description}
}
