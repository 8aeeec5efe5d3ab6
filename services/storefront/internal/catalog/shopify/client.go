// Package shopify is a read-only client for the Shopify Storefront GraphQL
// API.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/cyrasubia/phoinix-storefront/pkg/errors"
	"github.com/cyrasubia/phoinix-storefront/pkg/httpclient"
	"github.com/cyrasubia/phoinix-storefront/pkg/tracing"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/domain"
)

const (
	tracerName      = "github.com/cyrasubia/phoinix-storefront/services/storefront/internal/catalog/shopify"
	tokenHeader     = "X-Shopify-Storefront-Access-Token"
	maxResponseSize = 4 << 20
)

// Config identifies the shop. Endpoint overrides the URL derived from
// Domain and APIVersion.
type Config struct {
	Domain      string
	APIVersion  string
	AccessToken string
	Endpoint    string
}

// URL returns the GraphQL endpoint.
func (c Config) URL() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	u := url.URL{
		Scheme: "https",
		Host:   c.Domain,
		Path:   "/api/" + c.APIVersion + "/graphql.json",
	}
	return u.String()
}

// Doer sends a request. *httpclient.CircuitBreakerClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client implements catalog.Source against the Storefront API.
type Client struct {
	cfg    Config
	http   Doer
	logger *slog.Logger
}

func NewClient(cfg Config, doer Doer, logger *slog.Logger) *Client {
	return &Client{cfg: cfg, http: doer, logger: logger}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var data struct {
		Products connection[productNode] `json:"products"`
	}
	if err := c.query(ctx, "getProducts", productsQuery, nil, &data); err != nil {
		return nil, err
	}
	return toProducts(data.Products), nil
}

func (c *Client) GetProduct(ctx context.Context, handle string) (*domain.Product, error) {
	var data struct {
		Product *productNode `json:"product"`
	}
	if err := c.query(ctx, "getProduct", productQuery, map[string]any{"handle": handle}, &data); err != nil {
		return nil, err
	}
	if data.Product == nil {
		return nil, apperrors.NotFound("product", handle)
	}
	p := data.Product.toDomain()
	return &p, nil
}

func (c *Client) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	var data struct {
		Collections connection[collectionNode] `json:"collections"`
	}
	if err := c.query(ctx, "getCollections", collectionsQuery, nil, &data); err != nil {
		return nil, err
	}
	out := make([]domain.Collection, 0, len(data.Collections.Edges))
	for _, e := range data.Collections.Edges {
		out = append(out, e.Node.toDomain())
	}
	return out, nil
}

func (c *Client) GetCollection(ctx context.Context, handle string) (*domain.Collection, error) {
	var data struct {
		Collection *struct {
			collectionNode
			Products connection[productNode] `json:"products"`
		} `json:"collection"`
	}
	if err := c.query(ctx, "getCollection", collectionQuery, map[string]any{"handle": handle}, &data); err != nil {
		return nil, err
	}
	if data.Collection == nil {
		return nil, apperrors.NotFound("collection", handle)
	}
	col := data.Collection.collectionNode.toDomain()
	col.Products = toProducts(data.Collection.Products)
	return &col, nil
}

// query posts one GraphQL operation and decodes its data member into out.
func (c *Client) query(ctx context.Context, op, query string, vars map[string]any, out any) (err error) {
	ctx, span := tracing.Tracer(tracerName).Start(ctx, "shopify."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("graphql.operation.name", op),
			attribute.String("server.address", c.cfg.Domain),
		),
	)
	start := time.Now()
	defer func() {
		tracing.RecordError(span, err)
		span.End()
		c.logger.DebugContext(ctx, "shopify query",
			slog.String("operation", op),
			slog.Duration("duration", time.Since(start)),
			slog.Bool("ok", err == nil),
		)
	}()

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("shopify %s: encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("shopify %s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(tokenHeader, c.cfg.AccessToken)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("shopify %s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, "shopify")
	}
	defer func() { _ = resp.Body.Close() }()

	var gr graphQLResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&gr); err != nil {
		return fmt.Errorf("shopify %s: decode response: %w", op, err)
	}
	if msgs := httpclient.ErrorMessages(gr.Errors); len(msgs) > 0 {
		return fmt.Errorf("shopify %s: graphql errors: %s", op, strings.Join(msgs, "; "))
	}
	if len(gr.Data) == 0 || string(gr.Data) == "null" {
		return fmt.Errorf("shopify %s: response has no data", op)
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return fmt.Errorf("shopify %s: decode data: %w", op, err)
	}
	return nil
}
