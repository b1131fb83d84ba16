package api

import (
	"time"

	"github.com/jeovahfialho/trade-ledger/internal/domain"
)

// RecordTradeRequest is the recordTrade payload. Identifiers are
// canonical UUID strings; price and total_value are integers in the
// smallest currency unit.
type RecordTradeRequest struct {
	TradeID     string `json:"trade_id" validate:"required"`
	StockSymbol string `json:"stock_symbol" validate:"required"`
	Price       int64  `json:"price"`
	Quantity    int64  `json:"quantity"`
	TotalValue  int64  `json:"total_value"`
	BuyerID     string `json:"buyer_id" validate:"required"`
	SellerID    string `json:"seller_id" validate:"required"`
}

type TradeResponse struct {
	TradeID      string `json:"trade_id"`
	StockSymbol  string `json:"stock_symbol"`
	Price        int64  `json:"price"`
	PriceDecimal string `json:"price_decimal"`
	Quantity     int64  `json:"quantity"`
	TotalValue   int64  `json:"total_value"`
	TotalDecimal string `json:"total_value_decimal"`
	Notional     int64  `json:"notional"`
	BuyerID      string `json:"buyer_id"`
	SellerID     string `json:"seller_id"`
	Timestamp    int64  `json:"timestamp"`
	Sequence     int64  `json:"sequence"`
}

func NewTradeResponse(rec domain.TradeRecord) TradeResponse {
	return TradeResponse{
		TradeID:      rec.TradeID.String(),
		StockSymbol:  rec.StockSymbol,
		Price:        rec.Price,
		PriceDecimal: domain.MinorUnits(rec.Price).StringFixed(2),
		Quantity:     rec.Quantity,
		TotalValue:   rec.TotalValue,
		TotalDecimal: domain.MinorUnits(rec.TotalValue).StringFixed(2),
		Notional:     rec.Notional(),
		BuyerID:      rec.BuyerID.String(),
		SellerID:     rec.SellerID.String(),
		Timestamp:    rec.Timestamp,
		Sequence:     rec.Sequence,
	}
}

type VerifyResponse struct {
	TradeID   string `json:"trade_id"`
	Exists    bool   `json:"exists"`
	Timestamp int64  `json:"timestamp"`
}

type TradeIDsResponse struct {
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
	Total int      `json:"total"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type OwnerResponse struct {
	Owner string `json:"owner"`
}

type HealthResponse struct {
	Status    string                   `json:"status"`
	Version   string                   `json:"version"`
	Timestamp time.Time                `json:"timestamp"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

type ServiceHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

type SystemStatsResponse struct {
	Database DatabaseStats `json:"database"`
	API      APIStats      `json:"api"`
}

type DatabaseStats struct {
	ActiveConnections int32  `json:"active_connections"`
	IdleConnections   int32  `json:"idle_connections"`
	TotalConnections  int32  `json:"total_connections"`
	WaitCount         int64  `json:"wait_count"`
	WaitDuration      string `json:"wait_duration"`
}

type APIStats struct {
	MemoryUsed       string `json:"memory_used"`
	ActiveGoroutines int    `json:"active_goroutines"`
}

type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      int       `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ExportRequest struct {
	FilePath string `json:"file_path" validate:"required"`
	Async    bool   `json:"async"`
}

type ExportResponse struct {
	JobID        string `json:"job_id,omitempty"`
	RecordsCount int64  `json:"records_count,omitempty"`
	Status       string `json:"status"`
	Message      string `json:"message"`
}
