package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/storefront_api/internal/cache"
	"github.com/GTDGit/storefront_api/internal/events"
	"github.com/GTDGit/storefront_api/internal/gateway"
	"github.com/GTDGit/storefront_api/internal/metrics"
	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// retrySchedule is the delay before each retry; the last step repeats.
var retrySchedule = []time.Duration{
	5 * time.Second,
	30 * time.Second,
	2 * time.Minute,
	10 * time.Minute,
	time.Hour,
}

// Backoff returns the delay after the given number of failed attempts.
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	if attempts > len(retrySchedule) {
		return retrySchedule[len(retrySchedule)-1]
	}
	return retrySchedule[attempts-1]
}

const (
	defaultLease     = time.Minute
	maxDrainRounds   = 16
	defaultMaxTries  = 8
	defaultDrainSize = 50
)

// DrainResult counts what one Drain call did.
type DrainResult struct {
	Delivered int `json:"delivered"`
	Retrying  int `json:"retrying"`
	Failed    int `json:"failed"`
}

// SyncStatus is the outbox view served to order-management tooling.
type SyncStatus struct {
	Pending int                  `json:"pending"`
	Failed  int                  `json:"failed"`
	Entries []models.OutboxEntry `json:"entries"`
}

// OutboxService queues remote writes and replays them against the Store
// Gateway until they succeed or exhaust their attempts.
type OutboxService struct {
	queue       cache.OutboxQueue
	gw          gateway.Gateway
	bus         events.Publisher
	maxAttempts int
	batchSize   int
	now         func() time.Time
}

// NewOutboxService constructs an OutboxService.
func NewOutboxService(queue cache.OutboxQueue, gw gateway.Gateway, bus events.Publisher, maxAttempts, batchSize int) *OutboxService {
	if maxAttempts < 1 {
		maxAttempts = defaultMaxTries
	}
	if batchSize < 1 {
		batchSize = defaultDrainSize
	}
	return &OutboxService{
		queue:       queue,
		gw:          gw,
		bus:         bus,
		maxAttempts: maxAttempts,
		batchSize:   batchSize,
		now:         time.Now,
	}
}

// Enqueue records a pending write. The entry is due immediately.
func (s *OutboxService) Enqueue(ctx context.Context, kind models.OutboxKind, aggregateID string, payload any) (*models.OutboxEntry, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate outbox id: %w", err)
	}
	now := s.now()
	entry := &models.OutboxEntry{
		ID:            id.String(),
		Kind:          kind,
		AggregateID:   aggregateID,
		Payload:       data,
		Status:        models.OutboxPending,
		NextAttemptAt: now,
		CreatedAt:     now,
	}
	if err := s.queue.Enqueue(ctx, entry); err != nil {
		return nil, err
	}
	log.Debug().Str("entry_id", entry.ID).Str("kind", string(kind)).Str("aggregate_id", aggregateID).Msg("Outbox entry queued")
	return entry, nil
}

// Drain delivers due entries until none are left or the round limit is hit.
// Entries unlocked by an acknowledged predecessor are picked up in the next
// round of the same call.
func (s *OutboxService) Drain(ctx context.Context) (DrainResult, error) {
	var res DrainResult
	for round := 0; round < maxDrainRounds; round++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		entries, err := s.queue.Claim(ctx, s.now(), s.batchSize, defaultLease)
		if err != nil {
			return res, err
		}
		if len(entries) == 0 {
			break
		}
		for i := range entries {
			s.process(ctx, &entries[i], &res)
		}
	}

	if pending, failed, err := s.queue.Stats(ctx); err == nil {
		metrics.SetOutboxDepth(pending, failed)
	}
	return res, nil
}

func (s *OutboxService) process(ctx context.Context, e *models.OutboxEntry, res *DrainResult) {
	err := s.deliver(ctx, e)
	if err == nil {
		if ackErr := s.queue.Ack(ctx, e.ID); ackErr != nil {
			log.Error().Err(ackErr).Str("entry_id", e.ID).Msg("Failed to ack outbox entry")
			return
		}
		res.Delivered++
		metrics.RecordDelivery(string(e.Kind), "delivered")
		s.afterDelivery(ctx, e)
		return
	}

	e.Attempts++
	e.LastError = err.Error()
	logger := log.With().
		Str("entry_id", e.ID).
		Str("kind", string(e.Kind)).
		Str("aggregate_id", e.AggregateID).
		Int("attempts", e.Attempts).
		Logger()

	if permanent(err) || e.Attempts >= s.maxAttempts {
		if mErr := s.queue.MarkFailed(ctx, e); mErr != nil {
			logger.Error().Err(mErr).Msg("Failed to mark outbox entry failed")
			return
		}
		res.Failed++
		metrics.RecordDelivery(string(e.Kind), "failed")
		logger.Error().Err(err).Msg("Outbox entry failed permanently")
		s.bus.Publish(ctx, events.New(events.SyncFailed, e.AggregateID, e))
		s.afterDelivery(ctx, e)
		return
	}

	e.NextAttemptAt = s.now().Add(Backoff(e.Attempts))
	if rErr := s.queue.Reschedule(ctx, e); rErr != nil {
		logger.Error().Err(rErr).Msg("Failed to reschedule outbox entry")
		return
	}
	res.Retrying++
	metrics.RecordDelivery(string(e.Kind), "retry")
	logger.Warn().Err(err).Time("next_attempt_at", e.NextAttemptAt).Msg("Outbox delivery failed, will retry")
}

// permanent reports errors that a retry cannot fix.
func permanent(err error) bool {
	return errors.Is(err, utils.ErrValidation) || errors.Is(err, utils.ErrNotFound)
}

func (s *OutboxService) deliver(ctx context.Context, e *models.OutboxEntry) error {
	switch e.Kind {
	case models.OutboxStockDecrement:
		var d models.StockDecrement
		if err := decode(e, &d); err != nil {
			return err
		}
		change, err := s.gw.ApplyStockDecrement(ctx, d)
		if err != nil {
			return err
		}
		if change.Oversold() {
			metrics.RecordOversell()
		}
		return nil

	case models.OutboxProductUpsert:
		var p models.Product
		if err := decode(e, &p); err != nil {
			return err
		}
		return s.gw.UpsertProduct(ctx, &p)

	case models.OutboxProductDelete:
		var t models.DeleteTarget
		if err := decode(e, &t); err != nil {
			return err
		}
		return s.gw.DeleteProduct(ctx, t.ID)

	case models.OutboxBrandCreate:
		var b models.Brand
		if err := decode(e, &b); err != nil {
			return err
		}
		return s.gw.CreateBrand(ctx, &b)

	case models.OutboxBrandDelete:
		var t models.DeleteTarget
		if err := decode(e, &t); err != nil {
			return err
		}
		return s.gw.DeleteBrand(ctx, t.ID)

	case models.OutboxDeviceCreate:
		var d models.Device
		if err := decode(e, &d); err != nil {
			return err
		}
		return s.gw.CreateDevice(ctx, &d)

	case models.OutboxDeviceDelete:
		var t models.DeleteTarget
		if err := decode(e, &t); err != nil {
			return err
		}
		return s.gw.DeleteDevice(ctx, t.ID)

	case models.OutboxDiscountUpsert:
		var d models.DiscountCode
		if err := decode(e, &d); err != nil {
			return err
		}
		return s.gw.UpsertDiscount(ctx, &d)

	case models.OutboxDiscountDelete:
		var t models.DeleteTarget
		if err := decode(e, &t); err != nil {
			return err
		}
		return s.gw.DeleteDiscount(ctx, t.ID)

	case models.OutboxSlideUpsert:
		var sl models.Slide
		if err := decode(e, &sl); err != nil {
			return err
		}
		return s.gw.UpsertSlide(ctx, &sl)

	case models.OutboxSlideDelete:
		var t models.DeleteTarget
		if err := decode(e, &t); err != nil {
			return err
		}
		return s.gw.DeleteSlide(ctx, t.ID)

	case models.OutboxSettingsSave:
		var st models.StoreSettings
		if err := decode(e, &st); err != nil {
			return err
		}
		return s.gw.SaveSettings(ctx, &st)

	case models.OutboxOrderSync:
		var u models.OrderSyncUpdate
		if err := decode(e, &u); err != nil {
			return err
		}
		current, err := s.gw.GetOrder(ctx, u.OrderID)
		if err != nil {
			return err
		}
		return s.gw.UpdateOrderInventorySync(ctx, u.OrderID, u.Sync, current.Oversold || u.Oversold)
	}
	return utils.NewValidationError("kind", "unknown outbox kind "+string(e.Kind), nil)
}

func decode(e *models.OutboxEntry, v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return utils.NewValidationError("payload", "undecodable "+string(e.Kind)+" payload: "+err.Error(), nil)
	}
	return nil
}

// afterDelivery refreshes the inventory sync flag of the order a settled,
// failed or discarded stock decrement belonged to.
func (s *OutboxService) afterDelivery(ctx context.Context, e *models.OutboxEntry) {
	if e.Kind != models.OutboxStockDecrement {
		return
	}
	var d models.StockDecrement
	if err := json.Unmarshal(e.Payload, &d); err != nil || d.OrderID == "" {
		return
	}
	state, err := s.OrderSync(ctx, d.OrderID)
	if err != nil {
		log.Error().Err(err).Str("order_id", d.OrderID).Msg("Failed to compute order inventory sync")
		return
	}
	if state == models.InventoryPending {
		return
	}
	if _, err := s.Enqueue(ctx, models.OutboxOrderSync, d.OrderID, models.OrderSyncUpdate{OrderID: d.OrderID, Sync: state}); err != nil {
		log.Error().Err(err).Str("order_id", d.OrderID).Msg("Failed to queue order inventory sync")
	}
}

// OrderSync derives the inventory sync state of an order from the stock
// decrements still in the outbox: any failed entry means failed, any pending
// one means pending, none left means synced.
func (s *OutboxService) OrderSync(ctx context.Context, orderID string) (models.InventorySync, error) {
	entries, err := s.queue.List(ctx)
	if err != nil {
		return "", err
	}
	state := models.InventorySynced
	for i := range entries {
		e := &entries[i]
		if e.Kind != models.OutboxStockDecrement {
			continue
		}
		var d models.StockDecrement
		if err := json.Unmarshal(e.Payload, &d); err != nil || d.OrderID != orderID {
			continue
		}
		if e.Status == models.OutboxFailed {
			return models.InventoryFailed, nil
		}
		state = models.InventoryPending
	}
	return state, nil
}

// Status lists every entry still in the outbox.
func (s *OutboxService) Status(ctx context.Context) (*SyncStatus, error) {
	entries, err := s.queue.List(ctx)
	if err != nil {
		return nil, err
	}
	st := &SyncStatus{Entries: entries}
	for i := range entries {
		if entries[i].Status == models.OutboxFailed {
			st.Failed++
		} else {
			st.Pending++
		}
	}
	return st, nil
}

// Retry puts a failed entry back in line with a fresh attempt budget.
func (s *OutboxService) Retry(ctx context.Context, id string) (*models.OutboxEntry, error) {
	entry, err := s.queue.Requeue(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	log.Info().Str("entry_id", id).Str("kind", string(entry.Kind)).Msg("Outbox entry requeued")
	return entry, nil
}

// Discard drops a failed entry, unblocking later writes of its aggregate.
func (s *OutboxService) Discard(ctx context.Context, id string) error {
	entry, err := s.queue.Get(ctx, id)
	if err != nil {
		return err
	}
	if entry.Status != models.OutboxFailed {
		return utils.ErrSyncEntryNotFailed
	}
	if err := s.queue.Ack(ctx, id); err != nil {
		return err
	}
	log.Warn().Str("entry_id", id).Str("kind", string(entry.Kind)).Str("aggregate_id", entry.AggregateID).Msg("Failed outbox entry discarded")
	s.afterDelivery(ctx, entry)
	return nil
}
