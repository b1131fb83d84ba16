package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeovahfialho/trade-ledger/internal/config"
	"github.com/jeovahfialho/trade-ledger/internal/domain"
	"github.com/jeovahfialho/trade-ledger/internal/ledger"
	"github.com/jeovahfialho/trade-ledger/internal/service"
	"github.com/jeovahfialho/trade-ledger/internal/storage/postgres"
	pkglogger "github.com/jeovahfialho/trade-ledger/pkg/logger"
)

func main() {
	// The CLI talks to the journal directly; logs stay quiet unless
	// something breaks.
	if err := pkglogger.Init("error", "console", false); err != nil {
		fmt.Println("failed to initialize logger:", err)
		os.Exit(1)
	}
	defer pkglogger.Close()

	var rootCmd = &cobra.Command{
		Use:   "trade-ledger",
		Short: "Trade Settlement Ledger CLI",
		Long: `Operator CLI for the trade settlement ledger.
Records, inspects and exports settled trades against the same journal
the API serves from.`,
	}

	var recordCmd = &cobra.Command{
		Use:   "record",
		Short: "Record a settled trade",
		Long: `Record a settled trade as the ledger owner.
Generates a fresh trade id when --trade-id is omitted; total value
defaults to price*quantity when --total is omitted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tradeID, _ := cmd.Flags().GetString("trade-id")
			symbol, _ := cmd.Flags().GetString("symbol")
			price, _ := cmd.Flags().GetInt64("price")
			quantity, _ := cmd.Flags().GetInt64("quantity")
			total, _ := cmd.Flags().GetInt64("total")
			buyer, _ := cmd.Flags().GetString("buyer")
			seller, _ := cmd.Flags().GetString("seller")
			return recordTrade(tradeID, symbol, price, quantity, total, buyer, seller)
		},
	}

	recordCmd.Flags().StringP("trade-id", "t", "", "Trade id (UUID) - generated when omitted")
	recordCmd.Flags().StringP("symbol", "y", "", "Stock symbol")
	recordCmd.Flags().Int64P("price", "p", 0, "Price in smallest currency unit")
	recordCmd.Flags().Int64P("quantity", "q", 0, "Quantity")
	recordCmd.Flags().Int64("total", 0, "Total value - defaults to price*quantity")
	recordCmd.Flags().StringP("buyer", "b", "", "Buyer party id (UUID)")
	recordCmd.Flags().StringP("seller", "s", "", "Seller party id (UUID)")
	recordCmd.MarkFlagRequired("symbol")
	recordCmd.MarkFlagRequired("price")
	recordCmd.MarkFlagRequired("quantity")
	recordCmd.MarkFlagRequired("buyer")
	recordCmd.MarkFlagRequired("seller")

	var getCmd = &cobra.Command{
		Use:   "get [trade-id]",
		Short: "Fetch a trade record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getTrade(args[0])
		},
	}

	var verifyCmd = &cobra.Command{
		Use:   "verify [trade-id]",
		Short: "Probe whether a trade exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return verifyTrade(args[0])
		},
	}

	var listCmd = &cobra.Command{
		Use:   "list",
		Short: "List recorded trade ids in insertion order",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return listTrades(limit)
		},
	}

	listCmd.Flags().IntP("limit", "n", 0, "Show at most N ids (0 = all)")

	var countCmd = &cobra.Command{
		Use:   "count",
		Short: "Number of recorded trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			return countTrades()
		},
	}

	var statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Ledger status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus()
		},
	}

	var healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Check system health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkHealth()
		},
	}

	var exportCmd = &cobra.Command{
		Use:   "export [file]",
		Short: "Export the journal to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportJournal(args[0])
		},
	}

	rootCmd.AddCommand(recordCmd, getCmd, verifyCmd, listCmd, countCmd, statusCmd, healthCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// openLedger connects to the journal and replays it into an in-memory
// ledger, the same bootstrap path the API server runs.
func openLedger(ctx context.Context, cfg *config.Config) (*service.LedgerService, *postgres.DB, error) {
	owner, err := domain.ParsePartyID(cfg.OwnerID)
	if err != nil {
		return nil, nil, fmt.Errorf("LEDGER_OWNER_ID must be a valid UUID: %w", err)
	}

	db, err := postgres.NewDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	led := ledger.New(owner)
	journal := postgres.NewJournal(db.Pool())
	svc := service.NewLedgerService(led, journal, nil, nil, "")

	if err := svc.Bootstrap(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	return svc, db, nil
}

func recordTrade(tradeIDStr, symbol string, price, quantity, total int64, buyerStr, sellerStr string) error {
	ctx := context.Background()
	cfg := config.Load()

	svc, db, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var tradeID domain.TradeID
	if tradeIDStr == "" {
		tradeID = domain.NewTradeID()
	} else {
		tradeID, err = domain.ParseTradeID(tradeIDStr)
		if err != nil {
			return fmt.Errorf("invalid trade id: %w", err)
		}
	}

	buyer, err := domain.ParsePartyID(buyerStr)
	if err != nil {
		return fmt.Errorf("invalid buyer id: %w", err)
	}
	seller, err := domain.ParsePartyID(sellerStr)
	if err != nil {
		return fmt.Errorf("invalid seller id: %w", err)
	}

	if total == 0 {
		total = price * quantity
	}

	in := domain.TradeInput{
		TradeID:     tradeID,
		StockSymbol: symbol,
		Price:       price,
		Quantity:    quantity,
		TotalValue:  total,
		BuyerID:     buyer,
		SellerID:    seller,
	}

	rec, err := svc.RecordTrade(ctx, svc.Owner(), in)
	if err != nil {
		return fmt.Errorf("recording trade: %w", err)
	}

	fmt.Printf("✅ Trade recorded\n")
	printRecord(rec)
	return nil
}

func getTrade(tradeIDStr string) error {
	ctx := context.Background()
	cfg := config.Load()

	svc, db, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	tradeID, err := domain.ParseTradeID(tradeIDStr)
	if err != nil {
		return fmt.Errorf("invalid trade id: %w", err)
	}

	rec, err := svc.GetTrade(ctx, tradeID)
	if err != nil {
		return err
	}

	printRecord(rec)
	return nil
}

func printRecord(rec domain.TradeRecord) {
	fmt.Printf("\n📄 Trade %s:\n", rec.TradeID)
	fmt.Printf("├─ Symbol:      %s\n", rec.StockSymbol)
	fmt.Printf("├─ Price:       %s\n", domain.MinorUnits(rec.Price).StringFixed(2))
	fmt.Printf("├─ Quantity:    %d\n", rec.Quantity)
	fmt.Printf("├─ Total value: %s\n", domain.MinorUnits(rec.TotalValue).StringFixed(2))
	fmt.Printf("├─ Buyer:       %s\n", rec.BuyerID)
	fmt.Printf("├─ Seller:      %s\n", rec.SellerID)
	fmt.Printf("├─ Sequence:    %d\n", rec.Sequence)
	fmt.Printf("└─ Recorded at: %s\n", time.Unix(rec.Timestamp, 0).Format(time.RFC3339))
}

func verifyTrade(tradeIDStr string) error {
	ctx := context.Background()
	cfg := config.Load()

	svc, db, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	tradeID, err := domain.ParseTradeID(tradeIDStr)
	if err != nil {
		// The probe never fails: an unparseable id is simply unknown.
		fmt.Printf("❌ %s: not recorded\n", tradeIDStr)
		return nil
	}

	exists, ts := svc.VerifyTrade(tradeID)
	if !exists {
		fmt.Printf("❌ %s: not recorded\n", tradeID)
		return nil
	}

	fmt.Printf("✅ %s: recorded at %s\n", tradeID, time.Unix(ts, 0).Format(time.RFC3339))
	return nil
}

func listTrades(limit int) error {
	ctx := context.Background()
	cfg := config.Load()

	svc, db, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ids := svc.AllTradeIDs(limit)
	total := svc.Count()

	if len(ids) == 0 {
		fmt.Println("No trades recorded")
		return nil
	}

	fmt.Printf("📋 %d trade(s)", total)
	if len(ids) < total {
		fmt.Printf(" (showing first %d)", len(ids))
	}
	fmt.Println(":")

	for i, id := range ids {
		fmt.Printf("  %4d. %s\n", i+1, id)
	}

	return nil
}

func countTrades() error {
	ctx := context.Background()
	cfg := config.Load()

	svc, db, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Printf("📊 %d trade(s) recorded\n", svc.Count())
	return nil
}

func showStatus() error {
	ctx := context.Background()
	cfg := config.Load()

	svc, db, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	st := svc.Status(ctx)

	fmt.Println("🏦 Ledger status:")
	fmt.Printf("├─ Owner:    %s\n", st.Owner)
	fmt.Printf("├─ Trades:   %d\n", st.TradeCount)
	fmt.Printf("├─ Degraded: %v\n", st.Degraded)
	fmt.Printf("└─ Journal:  %s (%d records)\n", st.Journal.Status, st.Journal.Records)

	return nil
}

func checkHealth() error {
	ctx := context.Background()
	cfg := config.Load()

	fmt.Println("🏥 Checking system health...")

	fmt.Print("PostgreSQL: ")
	db, err := postgres.NewDB(cfg)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return nil
	}
	defer db.Close()

	if err := db.HealthCheck(ctx); err != nil {
		fmt.Printf("❌ %v\n", err)
	} else {
		fmt.Println("✅ OK")
	}

	return nil
}

func exportJournal(path string) error {
	ctx := context.Background()
	cfg := config.Load()

	db, err := postgres.NewDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	journal := postgres.NewJournal(db.Pool())

	fmt.Printf("📥 Exporting journal to %s...\n", path)
	count, err := journal.ExportCSV(ctx, path)
	if err != nil {
		return fmt.Errorf("exporting journal: %w", err)
	}

	fmt.Printf("✅ Exported %d record(s)\n", count)
	return nil
}
