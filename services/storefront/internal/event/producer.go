package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	pkgkafka "github.com/cyrasubia/phoinix-storefront/pkg/kafka"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/cart"
)

// Kafka topic constants for cart events.
const (
	TopicCartUpdated = "storefront.cart.updated"
	TopicCartCleared = "storefront.cart.cleared"
)

// Aggregate type constant.
const AggregateTypeCart = "cart"

// Source identifier for events originating from the storefront.
const SourceStorefront = "storefront"

const publishTimeout = 5 * time.Second

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	CartKey    string          `json:"cart_key"`
	Op         string          `json:"op"`
	Revision   uint64          `json:"revision"`
	Items      []CartItemData  `json:"items"`
	ItemCount  int             `json:"item_count"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// CartItemData is the item payload within cart events.
type CartItemData struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Title     string          `json:"title"`
	Handle    string          `json:"handle"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	CartKey  string `json:"cart_key"`
	Revision uint64 `json:"revision"`
}

// Publisher is the part of the Kafka producer the cart events need.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes cart events to Kafka.
type Producer struct {
	kafka   Publisher
	cartKey string
	logger  *slog.Logger
}

// NewProducer creates a new event producer for the cart stored under cartKey.
func NewProducer(kafka Publisher, cartKey string, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:   kafka,
		cartKey: cartKey,
		logger:  logger,
	}
}

// Listen publishes the event matching snap. Panel changes and hydration are
// skipped. It is meant to be passed to cart.Store.Subscribe.
func (p *Producer) Listen(snap cart.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	var err error
	switch snap.Op {
	case cart.OpAdd, cart.OpRemove, cart.OpUpdateQuantity, cart.OpRefresh:
		err = p.PublishCartUpdated(ctx, snap)
	case cart.OpClear:
		err = p.PublishCartCleared(ctx, snap)
	default:
		return
	}
	if err != nil {
		p.logger.WarnContext(ctx, "failed to publish cart event",
			slog.String("op", string(snap.Op)),
			slog.Uint64("revision", snap.Revision),
			slog.String("error", err.Error()),
		)
	}
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, snap cart.Snapshot) error {
	items := make([]CartItemData, len(snap.Items))
	for i, item := range snap.Items {
		items[i] = CartItemData{
			ProductID: item.ID,
			VariantID: item.VariantID,
			Title:     item.Title,
			Handle:    item.Handle,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}

	data := CartUpdatedData{
		CartKey:    p.cartKey,
		Op:         string(snap.Op),
		Revision:   snap.Revision,
		Items:      items,
		ItemCount:  snap.TotalItems(),
		TotalPrice: snap.TotalPrice(),
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, p.cartKey, AggregateTypeCart, SourceStorefront, data,
		pkgkafka.WithMetadata("op", string(snap.Op)),
	)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.Int("item_count", data.ItemCount),
		slog.Uint64("revision", snap.Revision),
	)

	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, snap cart.Snapshot) error {
	data := CartClearedData{CartKey: p.cartKey, Revision: snap.Revision}

	event, err := pkgkafka.NewEvent(TopicCartCleared, p.cartKey, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.cleared event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartCleared, event); err != nil {
		return fmt.Errorf("publish cart.cleared event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.cleared event")

	return nil
}
