package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"

	domain "github.com/stocksentry/stocksentry/pkg/types"
)

const (
	colorGreen  = 0x2ECC71 // buyable
	colorYellow = 0xF1C40F // visible but not buyable
	colorBlue   = 0x3498DB // price change
	colorGray   = 0x95A5A6 // admin / operational
)

// WebhookNotifier implements Notifier via a Discord-compatible webhook.
// The chat backend itself is an external collaborator; this is only the
// HTTP shim.
type WebhookNotifier struct {
	webhookURL string
	client     *http.Client
	resolveURL func(it *domain.Item) string
}

// NewWebhookNotifier creates a new WebhookNotifier.
func NewWebhookNotifier(webhookURL string, opts ...WebhookOption) *WebhookNotifier {
	w := &WebhookNotifier{
		webhookURL: webhookURL,
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WebhookOption configures a WebhookNotifier.
type WebhookOption func(*WebhookNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *WebhookNotifier) {
		w.client = c
	}
}

// WithURLResolver sets the product URL resolver used to link alerts.
func WithURLResolver(resolve func(it *domain.Item) string) WebhookOption {
	return func(w *WebhookNotifier) {
		w.resolveURL = resolve
	}
}

// webhookPayload is the webhook JSON structure.
type webhookPayload struct {
	Embeds []webhookEmbed `json:"embeds"`
}

type webhookEmbed struct {
	Title       string              `json:"title"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []webhookEmbedField `json:"fields,omitempty"`
}

type webhookEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// NotifyStock sends a stock alert as a single embed.
func (w *WebhookNotifier) NotifyStock(ctx context.Context, it *domain.Item, cookiesAmount int) (string, error) {
	if it == nil || it.Product == nil {
		return "", nil
	}

	embed := webhookEmbed{
		Title: fmt.Sprintf("Stock Alert: %s", it.Product.Title),
		URL:   w.productURL(it),
		Color: colorGreen,
		Fields: []webhookEmbedField{
			{Name: "Product", Value: it.Product.ID, Inline: true},
			{Name: "Price", Value: formatPrice(it), Inline: true},
		},
	}
	if cookiesAmount > 0 {
		embed.Fields = append(embed.Fields, webhookEmbedField{
			Name: "Credits", Value: fmt.Sprintf("%d", cookiesAmount), Inline: true,
		})
	}

	return "", w.post(ctx, webhookPayload{Embeds: []webhookEmbed{embed}})
}

// NotifyPriceChange sends a price-change embed.
func (w *WebhookNotifier) NotifyPriceChange(ctx context.Context, it *domain.Item, lastKnownPrice float64) error {
	if it == nil || it.Product == nil {
		return nil
	}

	embed := webhookEmbed{
		Title: fmt.Sprintf("Price Change: %s", it.Product.Title),
		URL:   w.productURL(it),
		Color: colorBlue,
		Fields: []webhookEmbedField{
			{Name: "Product", Value: it.Product.ID, Inline: true},
			{Name: "Was", Value: formatAmount(lastKnownPrice, priceCurrency(it)), Inline: true},
			{Name: "Now", Value: formatPrice(it), Inline: true},
		},
	}

	return w.post(ctx, webhookPayload{Embeds: []webhookEmbed{embed}})
}

// NotifyAdmin sends an operational message.
func (w *WebhookNotifier) NotifyAdmin(ctx context.Context, message string) error {
	embed := webhookEmbed{
		Title:       "Admin",
		Color:       colorGray,
		Description: message,
	}
	return w.post(ctx, webhookPayload{Embeds: []webhookEmbed{embed}})
}

// NotifyRateLimit announces upstream throttling.
func (w *WebhookNotifier) NotifyRateLimit(ctx context.Context) error {
	return w.NotifyAdmin(ctx, "Upstream store is rate limiting requests.")
}

// NotifyCookies announces the credit balance for a product.
func (w *WebhookNotifier) NotifyCookies(ctx context.Context, it *domain.Item, amount int) error {
	if it == nil || it.Product == nil {
		return nil
	}

	embed := webhookEmbed{
		Title: fmt.Sprintf("Credits: %s", it.Product.Title),
		URL:   w.productURL(it),
		Color: colorYellow,
		Fields: []webhookEmbedField{
			{Name: "Product", Value: it.Product.ID, Inline: true},
			{Name: "Amount", Value: fmt.Sprintf("%d", amount), Inline: true},
		},
	}
	return w.post(ctx, webhookPayload{Embeds: []webhookEmbed{embed}})
}

// Shutdown is a no-op; the webhook is stateless.
func (w *WebhookNotifier) Shutdown() {}

func (w *WebhookNotifier) productURL(it *domain.Item) string {
	if w.resolveURL == nil {
		return ""
	}
	return w.resolveURL(it)
}

func formatPrice(it *domain.Item) string {
	return formatAmount(it.PriceAmount(), priceCurrency(it))
}

func priceCurrency(it *domain.Item) string {
	if it.Price == nil || it.Price.Currency == "" {
		return "EUR"
	}
	return it.Price.Currency
}

func formatAmount(amount float64, currency string) string {
	if math.IsNaN(amount) {
		return "unknown"
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}

func (w *WebhookNotifier) post(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		w.webhookURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("webhook rate limited (429)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("webhook returned %d (body unreadable)", resp.StatusCode)
		}
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
