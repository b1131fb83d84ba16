package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeovahfialho/trade-ledger/internal/domain"
	"github.com/jeovahfialho/trade-ledger/internal/events"
	"github.com/jeovahfialho/trade-ledger/internal/ledger"
	"github.com/jeovahfialho/trade-ledger/internal/storage/cache"
	"github.com/jeovahfialho/trade-ledger/internal/storage/postgres"
	"github.com/jeovahfialho/trade-ledger/pkg/logger"
	"github.com/jeovahfialho/trade-ledger/pkg/metrics"
)

// LedgerService wires the in-memory ledger to its durable journal, the
// read cache and the event publishers. The in-memory ledger is the
// source of truth for reads; postgres is the replayed-at-boot journal.
//
// Journal, cache and publisher are all optional (nil): the CLI and the
// tests run against the bare ledger.
type LedgerService struct {
	ledger       *ledger.Ledger
	journal      *postgres.Journal
	cache        *cache.RedisCache
	publisher    *events.Publisher
	eventChannel string
	startedAt    time.Time

	eventCh chan domain.TradeRecorded
	done    chan struct{}
	wg      sync.WaitGroup

	mu             sync.Mutex
	degraded       bool
	lastJournalErr string
}

func NewLedgerService(
	led *ledger.Ledger,
	journal *postgres.Journal,
	redisCache *cache.RedisCache,
	publisher *events.Publisher,
	eventChannel string,
) *LedgerService {
	return &LedgerService{
		ledger:       led,
		journal:      journal,
		cache:        redisCache,
		publisher:    publisher,
		eventChannel: eventChannel,
		startedAt:    time.Now(),
		eventCh:      make(chan domain.TradeRecorded, 256),
		done:         make(chan struct{}),
	}
}

// Bootstrap replays the journal into the empty ledger. Must run before
// Start and before the service takes traffic.
func (s *LedgerService) Bootstrap(ctx context.Context) error {
	if s.journal == nil {
		return nil
	}

	records, err := s.journal.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading journal: %w", err)
	}

	if err := s.ledger.Restore(records); err != nil {
		return fmt.Errorf("restoring ledger: %w", err)
	}

	metrics.LedgerSize.Set(float64(s.ledger.Count()))
	logger.Info("ledger restored from journal", zap.Int("trades", len(records)))
	return nil
}

// Start launches the event pump that forwards TradeRecorded events to
// Kafka and the Redis pub/sub channel.
func (s *LedgerService) Start() {
	s.ledger.Subscribe(s.eventCh)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.done:
				return
			case ev := <-s.eventCh:
				s.dispatch(ev)
			}
		}
	}()
}

func (s *LedgerService) Stop() {
	close(s.done)
	s.wg.Wait()
}

func (s *LedgerService) dispatch(ev domain.TradeRecorded) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.publisher != nil {
		s.publisher.Publish(ctx, ev)
	}

	if s.cache != nil && s.eventChannel != "" {
		if err := s.cache.Publish(ctx, s.eventChannel, ev); err != nil {
			metrics.RecordEventPublished("redis", "error")
			logger.Warn("publishing trade event to redis",
				zap.String("trade_id", ev.TradeID), zap.Error(err))
		} else {
			metrics.RecordEventPublished("redis", "success")
		}
	}
}

// RecordTrade runs the full write path: in-memory commit, journal
// append, cache fill. A journal failure after the in-memory commit does
// not roll anything back — the service goes degraded and keeps serving,
// the way the original backend treated an unreachable chain node.
func (s *LedgerService) RecordTrade(ctx context.Context, caller domain.PartyID, in domain.TradeInput) (domain.TradeRecord, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RecordDuration)

	rec, err := s.ledger.Record(caller, in)
	if err != nil {
		metrics.RecordTrade(statusFor(err))
		return domain.TradeRecord{}, err
	}

	metrics.RecordTrade("recorded")
	metrics.LedgerSize.Set(float64(s.ledger.Count()))

	if s.journal != nil {
		if err := s.journal.Append(ctx, rec); err != nil {
			s.markDegraded(err)
			logger.Error("journal append failed, ledger degraded",
				zap.String("trade_id", rec.TradeID.String()),
				zap.Error(err))
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, tradeKey(rec.TradeID), rec); err != nil {
			logger.Warn("caching trade", zap.String("trade_id", rec.TradeID.String()), zap.Error(err))
		}
	}

	logger.Info("trade recorded",
		zap.String("trade_id", rec.TradeID.String()),
		zap.String("symbol", rec.StockSymbol),
		zap.Int64("price", rec.Price),
		zap.Int64("quantity", rec.Quantity),
		zap.Int64("sequence", rec.Sequence))

	return rec, nil
}

// GetTrade looks the record up through the cache first. The cache also
// serves external consumers that subscribe to the same keys; the
// in-memory ledger stays authoritative on a miss or a mismatch.
func (s *LedgerService) GetTrade(ctx context.Context, id domain.TradeID) (domain.TradeRecord, error) {
	if s.cache != nil {
		var cached domain.TradeRecord
		if err := s.cache.Get(ctx, tradeKey(id), &cached); err == nil {
			metrics.RecordCacheHit()
			metrics.RecordLookup("get", "hit")
			return cached, nil
		}
		metrics.RecordCacheMiss()
	}

	rec, err := s.ledger.Get(id)
	if err != nil {
		metrics.RecordLookup("get", "not_found")
		return domain.TradeRecord{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, tradeKey(id), rec); err != nil {
			logger.Debug("refreshing trade cache", zap.Error(err))
		}
	}

	metrics.RecordLookup("get", "success")
	return rec, nil
}

// VerifyTrade never fails: (false, 0) for an unknown id.
func (s *LedgerService) VerifyTrade(id domain.TradeID) (bool, int64) {
	exists, ts := s.ledger.Verify(id)
	if exists {
		metrics.RecordLookup("verify", "found")
	} else {
		metrics.RecordLookup("verify", "unknown")
	}
	return exists, ts
}

// AllTradeIDs returns ids in insertion order. limit <= 0 means all of
// them, preserving the original unpaginated interface.
func (s *LedgerService) AllTradeIDs(limit int) []domain.TradeID {
	ids := s.ledger.AllIDs()
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	return ids
}

func (s *LedgerService) Count() int {
	return s.ledger.Count()
}

func (s *LedgerService) Owner() domain.PartyID {
	return s.ledger.Owner()
}

// Status reports the ledger and its collaborators for the operator
// status endpoint.
func (s *LedgerService) Status(ctx context.Context) Status {
	s.mu.Lock()
	degraded := s.degraded
	lastErr := s.lastJournalErr
	s.mu.Unlock()

	st := Status{
		Owner:      s.ledger.Owner().String(),
		TradeCount: s.ledger.Count(),
		Uptime:     time.Since(s.startedAt).Round(time.Second).String(),
		Degraded:   degraded,
	}

	if s.journal != nil {
		count, err := s.journal.Count(ctx)
		if err != nil {
			st.Journal = ComponentStatus{Status: "unhealthy", Error: err.Error()}
		} else {
			st.Journal = ComponentStatus{Status: "healthy", Records: count}
		}
		if degraded {
			st.Journal.Status = "degraded"
			st.Journal.Error = lastErr
		}
	} else {
		st.Journal = ComponentStatus{Status: "disabled"}
	}

	if s.cache != nil {
		if err := s.cache.HealthCheck(ctx); err != nil {
			st.Cache = ComponentStatus{Status: "unhealthy", Error: err.Error()}
		} else {
			st.Cache = ComponentStatus{Status: "healthy"}
		}
	} else {
		st.Cache = ComponentStatus{Status: "disabled"}
	}

	if s.publisher != nil {
		st.Broker = ComponentStatus{Status: "enabled"}
	} else {
		st.Broker = ComponentStatus{Status: "disabled"}
	}

	return st
}

type Status struct {
	Owner      string          `json:"owner"`
	TradeCount int             `json:"trade_count"`
	Uptime     string          `json:"uptime"`
	Degraded   bool            `json:"degraded"`
	Journal    ComponentStatus `json:"journal"`
	Cache      ComponentStatus `json:"cache"`
	Broker     ComponentStatus `json:"broker"`
}

type ComponentStatus struct {
	Status  string `json:"status"`
	Records int64  `json:"records,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *LedgerService) markDegraded(err error) {
	s.mu.Lock()
	s.degraded = true
	s.lastJournalErr = err.Error()
	s.mu.Unlock()
}

func tradeKey(id domain.TradeID) string {
	return fmt.Sprintf("trade:%s", id)
}

func statusFor(err error) string {
	switch err {
	case domain.ErrUnauthorized:
		return "unauthorized"
	case domain.ErrDuplicateTrade:
		return "duplicate"
	case domain.ErrInvalidPrice, domain.ErrInvalidQuantity, domain.ErrEmptyTradeID:
		return "invalid"
	default:
		return "error"
	}
}
