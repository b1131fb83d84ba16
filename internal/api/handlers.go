package api

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jeovahfialho/trade-ledger/internal/domain"
	"github.com/jeovahfialho/trade-ledger/internal/service"
	"github.com/jeovahfialho/trade-ledger/internal/storage/cache"
	"github.com/jeovahfialho/trade-ledger/internal/storage/postgres"
	"github.com/jeovahfialho/trade-ledger/pkg/logger"
)

type Handler struct {
	db            *postgres.DB
	cacheService  *cache.RedisCache
	ledgerService *service.LedgerService
	journal       *postgres.Journal
}

func NewHandler(
	db *postgres.DB,
	cacheService *cache.RedisCache,
	ledgerService *service.LedgerService,
	journal *postgres.Journal,
) *Handler {
	return &Handler{
		db:            db,
		cacheService:  cacheService,
		ledgerService: ledgerService,
		journal:       journal,
	}
}

// RecordTrade godoc
// @Summary Record a settled trade
// @Description Append an immutable trade record. Owner only; the whole call reverts on any violation.
// @Tags trades
// @Accept json
// @Produce json
// @Param X-Caller-ID header string true "Caller party id (UUID)"
// @Param trade body RecordTradeRequest true "Trade"
// @Success 201 {object} TradeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /trades [post]
func (h *Handler) RecordTrade(c *fiber.Ctx) error {
	caller, err := domain.ParsePartyID(c.Get("X-Caller-ID"))
	if err != nil {
		return badRequest(c, "X-Caller-ID header must be a valid UUID")
	}

	var req RecordTradeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	in, err := tradeInputFrom(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	rec, err := h.ledgerService.RecordTrade(c.Context(), caller, in)
	if err != nil {
		return rejectTrade(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(NewTradeResponse(rec))
}

// GetTrade godoc
// @Summary Fetch a trade record
// @Tags trades
// @Produce json
// @Param id path string true "Trade id (UUID)"
// @Success 200 {object} TradeResponse
// @Failure 404 {object} ErrorResponse
// @Router /trades/{id} [get]
func (h *Handler) GetTrade(c *fiber.Ctx) error {
	id, err := domain.ParseTradeID(c.Params("id"))
	if err != nil {
		return badRequest(c, "trade id must be a valid UUID")
	}

	rec, err := h.ledgerService.GetTrade(c.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error:     domain.ErrNotFound.Error(),
				Code:      fiber.StatusNotFound,
				RequestID: getRequestID(c),
				Timestamp: time.Now(),
			})
		}
		logger.Error("fetching trade", zap.String("trade_id", id.String()), zap.Error(err))
		return internalError(c, "error fetching trade")
	}

	return c.JSON(NewTradeResponse(rec))
}

// VerifyTrade godoc
// @Summary Probe for a trade's existence
// @Description Non-failing existence check: exists=false, timestamp=0 for unknown ids.
// @Tags trades
// @Produce json
// @Param id path string true "Trade id (UUID)"
// @Success 200 {object} VerifyResponse
// @Router /trades/{id}/verify [get]
func (h *Handler) VerifyTrade(c *fiber.Ctx) error {
	id, err := domain.ParseTradeID(c.Params("id"))
	if err != nil {
		// The probe never fails, an unparseable id is simply unknown.
		return c.JSON(VerifyResponse{TradeID: c.Params("id"), Exists: false, Timestamp: 0})
	}

	exists, ts := h.ledgerService.VerifyTrade(id)
	return c.JSON(VerifyResponse{
		TradeID:   id.String(),
		Exists:    exists,
		Timestamp: ts,
	})
}

// ListTradeIDs godoc
// @Summary List recorded trade ids in insertion order
// @Tags trades
// @Produce json
// @Param limit query int false "Truncate the response to the first N ids"
// @Success 200 {object} TradeIDsResponse
// @Router /trades [get]
func (h *Handler) ListTradeIDs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)

	// Total and ids come from one snapshot so they never disagree when
	// a concurrent insert lands between them.
	ids := h.ledgerService.AllTradeIDs(0)
	total := len(ids)
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}

	return c.JSON(TradeIDsResponse{
		IDs:   out,
		Count: len(out),
		Total: total,
	})
}

// TradeCount godoc
// @Summary Number of recorded trades
// @Tags trades
// @Produce json
// @Success 200 {object} CountResponse
// @Router /trades/count [get]
func (h *Handler) TradeCount(c *fiber.Ctx) error {
	return c.JSON(CountResponse{Count: h.ledgerService.Count()})
}

// GetOwner godoc
// @Summary Ledger owner identity
// @Tags ledger
// @Produce json
// @Success 200 {object} OwnerResponse
// @Router /owner [get]
func (h *Handler) GetOwner(c *fiber.Ctx) error {
	return c.JSON(OwnerResponse{Owner: h.ledgerService.Owner().String()})
}

// GetStatus godoc
// @Summary Ledger and collaborator status
// @Tags ledger
// @Produce json
// @Success 200 {object} service.Status
// @Router /status [get]
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	return c.JSON(h.ledgerService.Status(ctx))
}

func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Version:   "1.0.0",
		Timestamp: time.Now(),
	})
}

func (h *Handler) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]ServiceHealth)

	if h.db != nil {
		dbStart := time.Now()
		if err := h.db.HealthCheck(ctx); err != nil {
			services["database"] = ServiceHealth{
				Status: "unhealthy",
				Error:  err.Error(),
			}
		} else {
			services["database"] = ServiceHealth{
				Status:  "healthy",
				Latency: time.Since(dbStart).String(),
			}
		}
	}

	if h.cacheService != nil {
		redisStart := time.Now()
		if err := h.cacheService.HealthCheck(ctx); err != nil {
			services["redis"] = ServiceHealth{
				Status: "unhealthy",
				Error:  err.Error(),
			}
		} else {
			services["redis"] = ServiceHealth{
				Status:  "healthy",
				Latency: time.Since(redisStart).String(),
			}
		}
	}

	status := "ready"
	for _, svc := range services {
		if svc.Status != "healthy" {
			status = "not_ready"
			break
		}
	}

	response := HealthResponse{
		Status:    status,
		Version:   "1.0.0",
		Timestamp: time.Now(),
		Services:  services,
	}

	if status != "ready" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(response)
	}

	return c.JSON(response)
}

func (h *Handler) InvalidateCache(c *fiber.Ctx) error {
	if h.cacheService == nil {
		return badRequest(c, "cache is not configured")
	}

	pattern := c.Params("pattern", "*")

	if err := h.cacheService.DeletePattern(c.Context(), pattern); err != nil {
		return internalError(c, "error invalidating cache")
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": fmt.Sprintf("cache invalidated for pattern: %s", pattern),
	})
}

func (h *Handler) GetSystemStats(c *fiber.Ctx) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := SystemStatsResponse{
		API: APIStats{
			MemoryUsed:       fmt.Sprintf("%d MB", m.Alloc/1024/1024),
			ActiveGoroutines: runtime.NumGoroutine(),
		},
	}

	if h.db != nil {
		dbStats := h.db.Stats()
		response.Database = DatabaseStats{
			ActiveConnections: dbStats.AcquiredConns(),
			IdleConnections:   dbStats.IdleConns(),
			TotalConnections:  dbStats.TotalConns(),
			WaitCount:         dbStats.EmptyAcquireCount(),
			WaitDuration:      dbStats.AcquireDuration().String(),
		}
	}

	return c.JSON(response)
}

// ExportJournal dumps the durable journal to a CSV file, optionally as
// a background job.
func (h *Handler) ExportJournal(c *fiber.Ctx) error {
	if h.journal == nil {
		return badRequest(c, "journal is not configured")
	}

	var req ExportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.FilePath == "" {
		return badRequest(c, "file_path is required")
	}

	if req.Async {
		jobID := generateJobID()

		go func() {
			ctx := context.Background()
			count, err := h.journal.ExportCSV(ctx, req.FilePath)
			if err != nil {
				logger.Error("journal export failed",
					zap.String("file", req.FilePath),
					zap.String("job_id", jobID),
					zap.Error(err))
			} else {
				logger.Info("journal exported",
					zap.String("file", req.FilePath),
					zap.String("job_id", jobID),
					zap.Int64("records", count))
			}
		}()

		return c.JSON(ExportResponse{
			JobID:   jobID,
			Status:  "processing",
			Message: "export started",
		})
	}

	count, err := h.journal.ExportCSV(c.Context(), req.FilePath)
	if err != nil {
		logger.Error("journal export failed", zap.String("file", req.FilePath), zap.Error(err))
		return internalError(c, "error exporting journal")
	}

	return c.JSON(ExportResponse{
		RecordsCount: count,
		Status:       "completed",
		Message:      "journal exported",
	})
}

func tradeInputFrom(req RecordTradeRequest) (domain.TradeInput, error) {
	tradeID, err := domain.ParseTradeID(req.TradeID)
	if err != nil {
		return domain.TradeInput{}, fmt.Errorf("trade_id must be a valid UUID")
	}
	buyerID, err := domain.ParsePartyID(req.BuyerID)
	if err != nil {
		return domain.TradeInput{}, fmt.Errorf("buyer_id must be a valid UUID")
	}
	sellerID, err := domain.ParsePartyID(req.SellerID)
	if err != nil {
		return domain.TradeInput{}, fmt.Errorf("seller_id must be a valid UUID")
	}

	return domain.TradeInput{
		TradeID:     tradeID,
		StockSymbol: req.StockSymbol,
		Price:       req.Price,
		Quantity:    req.Quantity,
		TotalValue:  req.TotalValue,
		BuyerID:     buyerID,
		SellerID:    sellerID,
	}, nil
}

// rejectTrade maps the ledger's rejection reasons onto HTTP statuses.
func rejectTrade(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		code = fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrDuplicateTrade):
		code = fiber.StatusConflict
	case errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrEmptyTradeID):
		code = fiber.StatusUnprocessableEntity
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:     err.Error(),
		Code:      code,
		RequestID: getRequestID(c),
		Timestamp: time.Now(),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:     msg,
		Code:      fiber.StatusBadRequest,
		RequestID: getRequestID(c),
		Timestamp: time.Now(),
	})
}

func internalError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:     msg,
		Code:      fiber.StatusInternalServerError,
		RequestID: getRequestID(c),
		Timestamp: time.Now(),
	})
}

func generateJobID() string {
	return fmt.Sprintf("job_%d_%s", time.Now().Unix(), randomString(8))
}

func getRequestID(c *fiber.Ctx) string {
	if id := c.Locals("requestID"); id != nil {
		return id.(string)
	}
	return ""
}
