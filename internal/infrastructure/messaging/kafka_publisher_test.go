package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
	domaininv "github.com/jhoicas/cocina-stock-api/internal/domain/inventory"
	"github.com/jhoicas/cocina-stock-api/pkg/logger"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Movimientos(t *testing.T) {
	low, mov := &fakeWriter{}, &fakeWriter{}
	p := newKafkaPublisher(low, mov, logger.Nop())
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	err := p.PublishMovements(context.Background(), "company-1", []*entity.StockTransaction{{
		ID: "tx-1", Type: entity.TransactionTypeOutward, LocationID: "loc-1", RawMaterialID: "mat-1",
		Quantity: decimal.RequireFromString("400"), Reference: "RECIPE-Veg Curry-1", RecipeID: "rec-1", CreatedAt: at,
	}})
	require.NoError(t, err)
	require.Len(t, mov.msgs, 1)
	assert.Empty(t, low.msgs)
	assert.Equal(t, "loc-1:mat-1", string(mov.msgs[0].Key))

	var ev MovementEvent
	require.NoError(t, json.Unmarshal(mov.msgs[0].Value, &ev))
	assert.Equal(t, "company-1", ev.CompanyID)
	assert.Equal(t, "rec-1", ev.RecipeID)
	assert.True(t, decimal.RequireFromString("400").Equal(ev.Quantity))
}

func TestKafkaPublisher_StockBajoYErrores(t *testing.T) {
	low, mov := &fakeWriter{}, &fakeWriter{}
	p := newKafkaPublisher(low, mov, logger.Nop())
	ctx := context.Background()

	require.NoError(t, p.PublishLowStock(ctx, nil), "sin eventos no se escribe nada")
	assert.Empty(t, low.msgs)

	events := []domaininv.LowStockEvent{{CompanyID: "company-1", LocationID: "loc-1", RawMaterialID: "mat-2", Material: "Tomate"}}
	require.NoError(t, p.PublishLowStock(ctx, events))
	require.Len(t, low.msgs, 1)
	assert.Contains(t, string(low.msgs[0].Value), `"Tomate"`)

	low.err = errors.New("broker caído")
	assert.Error(t, p.PublishLowStock(ctx, events))

	require.NoError(t, p.Close())
	assert.True(t, low.closed)
	assert.True(t, mov.closed)
}
