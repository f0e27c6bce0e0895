// Command demo runs the full pipeline in-process against a small sample
// catalog, prints the resulting golden records, and optionally writes an
// HTML dashboard that opens without running anything.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"

	"github.com/krittawat/order-register/internal/adapters/dashboard"
	"github.com/krittawat/order-register/internal/core/domain"
	"github.com/krittawat/order-register/internal/core/usecase"
	"github.com/krittawat/order-register/internal/infrastructure/catalog"
	"github.com/krittawat/order-register/internal/infrastructure/extractor/pattern"
	"github.com/krittawat/order-register/internal/infrastructure/repository/memory"
	"github.com/krittawat/order-register/internal/observability/logging"
)

type demoMessage struct {
	customer string
	channel  string
	text     string
}

func main() {
	htmlPath := flag.String("html", "order_register_dashboard.html", "path to save an HTML dashboard of the demo output")
	noHTML := flag.Bool("no-html", false, "skip writing the HTML dashboard")
	flag.Parse()

	logger := logging.NewJSONLogger("demo", "warn")
	ctx := context.Background()

	ledger := memory.NewIntakeLedger()
	repo := memory.NewRecordRepository()
	customers := memory.NewCustomerDirectory(
		domain.Customer{ID: "acme-steel", Name: "Acme Steel"},
		domain.Customer{ID: "bright-energy", Name: "Bright Energy"},
	)
	queue := memory.NewQueue()

	index := catalog.Build(sampleCatalog(), "demo", catalog.DefaultLookupConfig())
	store := catalog.NewStore(index)

	rules := usecase.NewRuleEngine(logger, usecase.DefaultRules(decimal.NewFromFloat(0.1))...)
	fusionCfg := usecase.DefaultFusionConfig()

	intakeUC := usecase.NewIntakeOrderUseCase(ledger, repo, queue)
	processUC := usecase.NewProcessOrderUseCase(
		repo, pattern.New(nil), store, customers, rules, fusionCfg, pattern.ExtractorID, logger,
	)

	fmt.Println("=== Order Register Demo ===")
	for _, msg := range demoMessages() {
		result, err := intakeUC.Submit(ctx, domain.Request{
			CustomerID: msg.customer,
			Channel:    msg.channel,
			RawText:    msg.text,
		})
		if err != nil {
			log.Fatalf("submit error: %v", err)
		}
		if result.Duplicate {
			fmt.Printf("\nDuplicate from %s via %s -> existing order %s\n", msg.customer, msg.channel, result.OrderID)
		}
	}

	err := queue.SubscribeOrderAdmitted(ctx, func(handlerCtx context.Context, orderID string) error {
		return processUC.ProcessByID(handlerCtx, orderID)
	})
	if err != nil {
		log.Fatalf("process error: %v", err)
	}

	records := repo.All(ctx)
	for _, record := range records {
		printRecord(record)
	}

	if *noHTML {
		return
	}
	file, err := os.Create(*htmlPath)
	if err != nil {
		log.Fatalf("create dashboard file: %v", err)
	}
	defer file.Close()
	if err := dashboard.Render(file, records); err != nil {
		log.Fatalf("render dashboard: %v", err)
	}
	fmt.Printf("\nSaved HTML dashboard to %s\n", *htmlPath)
}

func printRecord(record *domain.GoldenRecord) {
	fmt.Printf("\nOrder %s from %s via %s\n", record.OrderID, record.CustomerID, record.Channel)
	fmt.Printf("Status: %s (confidence %.2f)\n", record.Status, record.Confidence)
	for _, line := range record.Lines {
		sku := "<no match>"
		if line.Match != nil {
			sku = line.Match.SKUID
		}
		fmt.Printf("  - %d x %s -> %s (composite %.2f)\n",
			line.Candidate.Quantity, line.Candidate.Description, sku, line.Composite)
		for _, result := range line.Validations {
			if result.Passed {
				continue
			}
			fmt.Printf("    * [%s] %s: %s\n", result.Severity, result.Rule, result.Message)
		}
	}
}

func demoMessages() []demoMessage {
	return []demoMessage{
		{
			customer: "acme-steel",
			channel:  "LINE OA",
			text:     "Need 2x PVC pipe 2in and 5 copper cable 1.5 for Monday",
		},
		{
			customer: "bright-energy",
			channel:  "Email",
			text:     "Order: 3 pcs 8p switch, 50m 1.5mm wire",
		},
		{
			customer: "acme-steel",
			channel:  "LINE OA",
			text:     `repeat last order of 2" pvc`,
		},
		{
			// Retried webhook delivery of the first message.
			customer: "acme-steel",
			channel:  "LINE OA",
			text:     "Need 2x PVC pipe 2in and 5 copper cable 1.5 for Monday",
		},
	}
}

func sampleCatalog() []domain.CatalogEntry {
	price := func(min, max string) (decimal.Decimal, decimal.Decimal) {
		return decimal.RequireFromString(min), decimal.RequireFromString(max)
	}

	pvcMin, pvcMax := price("35.00", "55.00")
	cableMin, cableMax := price("12.00", "20.00")
	switchMin, switchMax := price("240.00", "320.00")
	wireMin, wireMax := price("8.00", "14.00")

	return []domain.CatalogEntry{
		{
			SKUID:         "SKU-PVC-2IN",
			Name:          "PVC pipe 2in",
			Synonyms:      []string{`2" pvc`, "pvc pipe 2 inch"},
			PermittedUOMs: []string{"pcs", "ea"},
			PriceMin:      pvcMin,
			PriceMax:      pvcMax,
			Active:        true,
		},
		{
			SKUID:         "SKU-CU-CABLE-15",
			Name:          "Copper cable 1.5",
			Synonyms:      []string{"copper cable 1.5mm", "cu cable 1.5"},
			PermittedUOMs: []string{"m", "rolls"},
			PriceMin:      cableMin,
			PriceMax:      cableMax,
			Active:        true,
		},
		{
			SKUID:         "SKU-SWITCH-8P",
			Name:          "8p switch",
			Synonyms:      []string{"8 port switch", "switch 8p"},
			PermittedUOMs: []string{"pcs", "ea"},
			PriceMin:      switchMin,
			PriceMax:      switchMax,
			Active:        true,
		},
		{
			SKUID:         "SKU-WIRE-15MM",
			Name:          "1.5mm wire",
			Synonyms:      []string{"wire 1.5mm", "1.5 wire"},
			PermittedUOMs: []string{"m", "rolls"},
			PriceMin:      wireMin,
			PriceMax:      wireMax,
			Active:        true,
		},
	}
}
