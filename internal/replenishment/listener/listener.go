package listener

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/projectsentry/replenishment-service/internal/broker"
	"github.com/projectsentry/replenishment-service/internal/replenishment"
)

// StageListener tails the four workflow topics and writes an audit line per
// stage event. It is a read-only observer; the workflow never depends on it.
type StageListener struct {
	consumer *broker.Consumer
	topics   replenishment.Topics
	logger   *zap.Logger
}

func NewStageListener(consumer *broker.Consumer, topics replenishment.Topics, logger *zap.Logger) *StageListener {
	return &StageListener{
		consumer: consumer,
		topics:   topics,
		logger:   logger,
	}
}

func (l *StageListener) Start(ctx context.Context) {
	l.logger.Info("starting replenishment stage listener", zap.Strings("topics", l.topics.All()))
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("stopping replenishment stage listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(msg.Topic, msg.Key, msg.Value)
		}
	}
}

func (l *StageListener) processMessage(topic string, key, value []byte) {
	fields := []zap.Field{
		zap.String("topic", topic),
		zap.String("replenishment_id", string(key)),
	}

	switch topic {
	case l.topics.LowStockAlert:
		var event replenishment.LowStockAlertEvent
		if err := json.Unmarshal(value, &event); err != nil {
			l.logger.Error("failed to unmarshal stage event", append(fields, zap.Error(err))...)
			return
		}
		l.logger.Info("stage event: low stock alert", append(fields,
			zap.String("store_id", event.StoreID),
			zap.String("product_id", event.ProductID),
			zap.Int("current_stock", event.CurrentStock),
			zap.Int("requested_quantity", event.RequestedQuantity),
		)...)
	case l.topics.TransferOrderCreated:
		var event replenishment.TransferOrderCreatedEvent
		if err := json.Unmarshal(value, &event); err != nil {
			l.logger.Error("failed to unmarshal stage event", append(fields, zap.Error(err))...)
			return
		}
		l.logger.Info("stage event: transfer order created", append(fields,
			zap.String("transfer_order_id", event.TransferOrderID),
			zap.String("warehouse_id", event.WarehouseID),
			zap.Int("transfer_quantity", event.TransferQuantity),
		)...)
	case l.topics.ShipmentDispatched:
		var event replenishment.ShipmentDispatchedEvent
		if err := json.Unmarshal(value, &event); err != nil {
			l.logger.Error("failed to unmarshal stage event", append(fields, zap.Error(err))...)
			return
		}
		l.logger.Info("stage event: shipment dispatched", append(fields,
			zap.String("shipment_id", event.ShipmentID),
			zap.String("tracking_number", event.TrackingNumber),
			zap.String("carrier", event.Carrier),
		)...)
	case l.topics.StockReceived:
		var event replenishment.StockReceivedEvent
		if err := json.Unmarshal(value, &event); err != nil {
			l.logger.Error("failed to unmarshal stage event", append(fields, zap.Error(err))...)
			return
		}
		l.logger.Info("stage event: stock received", append(fields,
			zap.Int("received_quantity", event.ReceivedQuantity),
			zap.Int("new_stock_level", event.NewStockLevel),
		)...)
	default:
		l.logger.Warn("message on unexpected topic", fields...)
	}
}
