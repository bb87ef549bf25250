// Package notification реализует доставку событий заказа во внешний шлюз уведомлений.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// Event описывает событие домена, о котором нужно уведомить получателя.
// Тип события соответствует новому статусу заказа.
type Event struct {
	Type      string `json:"type"`
	OrderID   int64  `json:"orderId"`
	Recipient string `json:"recipient"`
}

// OrderEvent формирует событие смены статуса заказа.
func OrderEvent(status string, orderID int64, recipient string) Event {
	return Event{
		Type:      "order_" + status,
		OrderID:   orderID,
		Recipient: recipient,
	}
}

const queueSize = 256

// Dispatcher отправляет события в шлюз уведомлений в режиме fire-and-forget:
// события публикуются в буферизованную очередь, доставка идёт в фоне,
// ошибки доставки логируются и не возвращаются публикующему.
type Dispatcher struct {
	baseURL    string
	httpClient *retryablehttp.Client
	logger     *zap.Logger
	events     chan Event
}

// NewDispatcher создаёт диспетчер уведомлений. При пустом адресе шлюза
// диспетчер работает вхолостую: события принимаются и отбрасываются.
func NewDispatcher(baseURL string, logger *zap.Logger) *Dispatcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 5 * time.Second
	client.Logger = nil

	return &Dispatcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		logger:     logger,
		events:     make(chan Event, queueSize),
	}
}

// Publish ставит событие в очередь доставки. Не блокируется: при
// переполненной очереди событие отбрасывается с записью в лог.
func (d *Dispatcher) Publish(e Event) {
	select {
	case d.events <- e:
	default:
		d.logger.Warn("notification queue full, event dropped",
			zap.String("type", e.Type), zap.Int64("orderID", e.OrderID))
	}
}

// Run доставляет события из очереди до отмены контекста.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-d.events:
			if d.baseURL == "" {
				continue
			}
			if err := d.deliver(ctx, e); err != nil {
				d.logger.Warn("notification delivery failed",
					zap.String("type", e.Type), zap.Int64("orderID", e.OrderID), zap.Error(err))
			}
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, e Event) error {
	base := d.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, base+"/api/notifications", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}
