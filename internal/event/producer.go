// Package event publishes catalog import events.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paramirez/deckzter-seed/internal/card"
	"github.com/paramirez/deckzter-seed/internal/catalog"
	pkgkafka "github.com/paramirez/deckzter-seed/pkg/kafka"
	"github.com/paramirez/deckzter-seed/pkg/logger"
)

// TopicCardImported receives one event per product created by an import.
var TopicCardImported = pkgkafka.Topic("card", "imported")

const (
	// AggregateTypeProduct is the aggregate the events describe.
	AggregateTypeProduct = "product"

	// EventTypeCardImported identifies card.imported events.
	EventTypeCardImported = "card.imported"

	// SourceCardImporter identifies this service as the producer.
	SourceCardImporter = "card-importer"
)

// CardImportedData is the payload of a card.imported event.
type CardImportedData struct {
	ProductID    string `json:"product_id"`
	VariantID    string `json:"variant_id"`
	ExternalID   string `json:"external_id"`
	Handle       string `json:"handle"`
	Title        string `json:"title"`
	SKU          string `json:"sku"`
	CardOracleID string `json:"card_oracle_id"`
	SetCode      string `json:"set"`
	Finish       string `json:"finish"`
	Rarity       string `json:"rarity"`
	Price        int64  `json:"price"`
	Currency     string `json:"currency"`
}

type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes card import events to Kafka.
type Producer struct {
	kafka    publisher
	currency string
	logger   *slog.Logger
}

// NewProducer creates an event producer. currency labels the price in
// every payload.
func NewProducer(kafka publisher, currency string, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:    kafka,
		currency: currency,
		logger:   logger,
	}
}

// PublishCardImported publishes a card.imported event for a newly created
// product and its single variant.
func (p *Producer) PublishCardImported(ctx context.Context, product *catalog.Product, variant card.Variant) error {
	data := CardImportedData{
		ProductID:    product.ID,
		ExternalID:   product.ExternalID,
		Handle:       product.Handle,
		Title:        product.Title,
		SKU:          variant.SKU,
		CardOracleID: variant.CardOracleID,
		SetCode:      variant.SetCode,
		Finish:       variant.Finish,
		Rarity:       variant.Rarity,
		Price:        variant.Price,
		Currency:     p.currency,
	}
	if len(product.Variants) > 0 {
		data.VariantID = product.Variants[0].ID
	}

	evt, err := pkgkafka.NewEvent(EventTypeCardImported, product.ID, AggregateTypeProduct, SourceCardImporter, data)
	if err != nil {
		return fmt.Errorf("build card.imported event: %w", err)
	}
	if runID := logger.ImportRunIDFromContext(ctx); runID != "" {
		evt.WithCorrelationID(runID)
	}
	evt.WithMetadata("sku", variant.SKU)

	if err := p.kafka.Publish(ctx, TopicCardImported, evt); err != nil {
		return fmt.Errorf("publish card.imported: %w", err)
	}

	p.logger.DebugContext(ctx, "card.imported event published",
		slog.String("product_id", product.ID),
		slog.String("sku", variant.SKU),
	)
	return nil
}
