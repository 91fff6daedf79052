package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cocina-stock-api/internal/application/inventory"
	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
	domaininv "github.com/jhoicas/cocina-stock-api/internal/domain/inventory"
	"github.com/jhoicas/cocina-stock-api/pkg/config"
	"github.com/jhoicas/cocina-stock-api/pkg/logger"
)

var _ inventory.EventPublisher = (*KafkaPublisher)(nil)

// MovementEvent mensaje publicado por cada transacción de stock confirmada.
type MovementEvent struct {
	ID                    string          `json:"id"`
	CompanyID             string          `json:"company_id"`
	Type                  string          `json:"type"`
	LocationID            string          `json:"location_id"`
	RawMaterialID         string          `json:"raw_material_id"`
	Quantity              decimal.Decimal `json:"quantity"`
	CostPrice             decimal.Decimal `json:"cost_price"`
	Reference             string          `json:"reference"`
	SourceLocationID      string          `json:"source_location_id,omitempty"`
	DestinationLocationID string          `json:"destination_location_id,omitempty"`
	Direction             string          `json:"direction,omitempty"`
	RecipeID              string          `json:"recipe_id,omitempty"`
	UserID                string          `json:"user_id,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
}

// messageWriter lo que se usa de *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica alertas de stock bajo y movimientos en dos tópicos.
// La clave del mensaje es sede:materia prima para conservar el orden por fila de inventario.
type KafkaPublisher struct {
	lowStock  messageWriter
	movements messageWriter
	log       *logger.Logger
}

// NewKafkaPublisher crea un writer por tópico sobre los brokers configurados.
func NewKafkaPublisher(cfg config.KafkaConfig, log *logger.Logger) *KafkaPublisher {
	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		}
	}
	log.Info().Strs("brokers", cfg.Brokers).Str("low_stock_topic", cfg.LowStockTopic).
		Str("movement_topic", cfg.MovementTopic).Msg("productor Kafka configurado")
	return newKafkaPublisher(newWriter(cfg.LowStockTopic), newWriter(cfg.MovementTopic), log)
}

func newKafkaPublisher(lowStock, movements messageWriter, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{lowStock: lowStock, movements: movements, log: log.Component("kafka")}
}

// PublishLowStock publica una alerta por materia prima que quedó en o bajo su mínimo.
func (p *KafkaPublisher) PublishLowStock(ctx context.Context, events []domaininv.LowStockEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("serializar alerta de stock bajo: %w", err)
		}
		msgs = append(msgs, kafka.Message{Key: messageKey(ev.LocationID, ev.RawMaterialID), Value: payload, Time: ev.OccurredAt})
	}
	if err := p.lowStock.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publicar alertas de stock bajo: %w", err)
	}
	p.log.Debug().Int("events", len(msgs)).Msg("alertas de stock bajo publicadas")
	return nil
}

// PublishMovements publica cada transacción confirmada.
func (p *KafkaPublisher) PublishMovements(ctx context.Context, companyID string, txs []*entity.StockTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(txs))
	for _, t := range txs {
		payload, err := json.Marshal(MovementEvent{
			ID:                    t.ID,
			CompanyID:             companyID,
			Type:                  t.Type,
			LocationID:            t.LocationID,
			RawMaterialID:         t.RawMaterialID,
			Quantity:              t.Quantity,
			CostPrice:             t.CostPrice,
			Reference:             t.Reference,
			SourceLocationID:      t.SourceLocationID,
			DestinationLocationID: t.DestinationLocationID,
			Direction:             t.Direction,
			RecipeID:              t.RecipeID,
			UserID:                t.UserID,
			CreatedAt:             t.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("serializar movimiento: %w", err)
		}
		msgs = append(msgs, kafka.Message{Key: messageKey(t.LocationID, t.RawMaterialID), Value: payload, Time: t.CreatedAt})
	}
	if err := p.movements.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publicar movimientos: %w", err)
	}
	p.log.Debug().Int("events", len(msgs)).Msg("movimientos publicados")
	return nil
}

// Close cierra ambos writers.
func (p *KafkaPublisher) Close() error {
	return errors.Join(p.lowStock.Close(), p.movements.Close())
}

func messageKey(locationID, rawMaterialID string) []byte {
	return []byte(locationID + ":" + rawMaterialID)
}
