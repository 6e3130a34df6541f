// custobrasil CLI - Brazil import landed-cost calculator
//
// Usage:
//   custobrasil quote --scenario embarque.hjson [--format markdown]
//   custobrasil reverse --scenario embarque.hjson --item 0 --target 25.00
//   custobrasil tipi fetch --out tipi.pdf
//   custobrasil tipi extract --pdf tipi.pdf --out tipi_rows.json
//   custobrasil refdata load --tec TEC.xlsx --ncm NCM.xlsx --tipi tipi.pdf
//   custobrasil fx --date 2026-08-28
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"custobrasil/pkg/core/config"
	"custobrasil/pkg/core/fx"
	"custobrasil/pkg/core/landed"
	"custobrasil/pkg/core/ncm"
	"custobrasil/pkg/core/report"
	"custobrasil/pkg/core/scenario"
	"custobrasil/pkg/core/store"
	"custobrasil/pkg/core/tipi"
)

func main() {
	godotenv.Load()

	app := &cli.App{
		Name:  "custobrasil",
		Usage: "Landed-cost calculator for imports into Brazil",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rates",
				Value:   "config/rates.yaml",
				Usage:   "Tax rate table (falls back to built-in defaults)",
				EnvVars: []string{"RATES_FILE"},
			},
			&cli.StringFlag{
				Name:    "ncm-cache",
				Usage:   "NCM reference CSV cache path",
				EnvVars: []string{"NCM_CACHE_FILE"},
			},
		},
		Commands: []*cli.Command{
			quoteCommand(),
			reverseCommand(),
			tipiCommand(),
			refdataCommand(),
			fxCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// QUOTE COMMAND
// =============================================================================

func quoteCommand() *cli.Command {
	return &cli.Command{
		Name:  "quote",
		Usage: "Compute the landed cost of a shipment scenario",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "scenario",
				Aliases:  []string{"s"},
				Usage:    "Path to the shipment scenario (Hjson)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "markdown",
				Usage:   "Output format (markdown, html, json)",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Write the report to a file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "title",
				Value: "Custo de importação",
				Usage: "Report title",
			},
		},
		Action: runQuote,
	}
}

func runQuote(c *cli.Context) error {
	results, sum, sc, err := computeScenario(c)
	if err != nil {
		return err
	}

	var out string
	switch c.String("format") {
	case "markdown":
		out = report.Markdown(c.String("title"), results, sum)
	case "html":
		out, err = report.HTML(c.String("title"), results, sum)
		if err != nil {
			return fmt.Errorf("render html: %w", err)
		}
	case "json":
		b, err := json.MarshalIndent(struct {
			Items   []landed.ItemResult `json:"items"`
			Summary landed.Summary      `json:"summary"`
		}{results, sum}, "", "  ")
		if err != nil {
			return err
		}
		out = string(b) + "\n"
	default:
		return fmt.Errorf("unknown format %q", c.String("format"))
	}

	fmt.Fprintf(os.Stderr, "Computed %d items, multiplier FOB→Brasil %.4f (%s)\n",
		len(results), sum.FOBToBrazilMultiplier, sc.State)

	if path := c.String("out"); path != "" {
		return os.WriteFile(path, []byte(out), 0644)
	}
	fmt.Print(out)
	return nil
}

// computeScenario loads, resolves and runs a scenario file shared by the
// quote and reverse commands.
func computeScenario(c *cli.Context) ([]landed.ItemResult, landed.Summary, *scenario.Scenario, error) {
	sc, err := scenario.Load(c.String("scenario"))
	if err != nil {
		return nil, landed.Summary{}, nil, err
	}
	cfg, items, err := resolveScenario(c, sc)
	if err != nil {
		return nil, landed.Summary{}, nil, err
	}
	results, sum, err := landed.Compute(items, cfg)
	if err != nil {
		return nil, landed.Summary{}, nil, err
	}
	return results, sum, sc, nil
}

func resolveScenario(c *cli.Context, sc *scenario.Scenario) (landed.ShipmentConfig, []landed.LineItem, error) {
	rates := config.LoadOrDefault(c.String("rates"))

	// The NCM reference table is optional: without it every item must carry
	// its own II/IPI rates.
	var table *ncm.Table
	repo := store.NewNCMRepo(nil, c.String("ncm-cache"))
	if t, err := repo.LoadTable(context.Background()); err == nil {
		table = t
	}

	return sc.Resolve(rates, table)
}

// =============================================================================
// REVERSE COMMAND
// =============================================================================

func reverseCommand() *cli.Command {
	return &cli.Command{
		Name:  "reverse",
		Usage: "Find the FOB unit price that hits a target landed unit cost",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "scenario",
				Aliases:  []string{"s"},
				Usage:    "Path to the shipment scenario (Hjson)",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "item",
				Usage: "Index of the line item to solve for",
			},
			&cli.Float64Flag{
				Name:     "target",
				Usage:    "Target landed unit cost in BRL",
				Required: true,
			},
			&cli.Float64Flag{
				Name:  "tolerance",
				Usage: "Convergence tolerance in BRL (default 0.01)",
			},
		},
		Action: runReverse,
	}
}

func runReverse(c *cli.Context) error {
	sc, err := scenario.Load(c.String("scenario"))
	if err != nil {
		return err
	}
	cfg, items, err := resolveScenario(c, sc)
	if err != nil {
		return err
	}

	res, err := landed.SolveTargetUnitPrice(items, cfg, c.Int("item"), c.Float64("target"),
		landed.SolveOptions{Tolerance: c.Float64("tolerance")})
	if err != nil {
		return err
	}

	switch res.Status {
	case landed.SolveConverged:
		fmt.Printf("FOB unit price: USD %.4f (landed unit cost BRL %.2f, %d evaluations)\n",
			res.PriceUSD, res.AchievedUnitCost, res.Evaluations)
	case landed.SolveAtFloor:
		fmt.Printf("Target BRL %.2f is at or below the zero-price floor: shared costs and taxes alone cost BRL %.2f per unit\n",
			c.Float64("target"), res.AchievedUnitCost)
	case landed.SolveUnbounded:
		fmt.Printf("Target BRL %.2f not reached; best attempt USD %.4f → BRL %.2f\n",
			c.Float64("target"), res.PriceUSD, res.AchievedUnitCost)
	}
	return nil
}

// =============================================================================
// TIPI COMMANDS
// =============================================================================

func tipiCommand() *cli.Command {
	return &cli.Command{
		Name:  "tipi",
		Usage: "Fetch and extract the official TIPI table (NCM → IPI rate)",
		Subcommands: []*cli.Command{
			{
				Name:  "fetch",
				Usage: "Locate and download the current TIPI PDF from gov.br",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Value:   "tipi.pdf",
						Usage:   "Output PDF path",
					},
				},
				Action: runTipiFetch,
			},
			{
				Name:  "extract",
				Usage: "Extract NCM rows from a TIPI PDF",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "pdf",
						Usage:    "Path to the TIPI PDF",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "max-pages",
						Value: tipi.DefaultMaxPages,
						Usage: "Number of pages to scan",
					},
					&cli.BoolFlag{
						Name:  "llm",
						Usage: "Use the Gemini fallback extractor (needs GEMINI_API_KEY)",
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Write rows as JSON to a file instead of stdout",
					},
				},
				Action: runTipiExtract,
			},
		},
	}
}

func runTipiFetch(c *cli.Context) error {
	f := tipi.NewFetcher()
	link, err := f.FindPDFLink()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Found %s\n", link)

	data, err := f.Download(link)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.String("out"), data, 0644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %d bytes to %s\n", len(data), c.String("out"))
	return nil
}

func runTipiExtract(c *cli.Context) error {
	pages, err := tipi.PageTexts(c.String("pdf"), c.Int("max-pages"))
	if err != nil {
		return err
	}

	var rows []tipi.Row
	if c.Bool("llm") {
		ex := &tipi.LLMExtractor{}
		ctx := context.Background()
		for i, page := range pages {
			pageRows, err := ex.ExtractFromText(ctx, page)
			if err != nil {
				fmt.Fprintf(os.Stderr, "page %d: %v\n", i+1, err)
				continue
			}
			rows = append(rows, pageRows...)
		}
	} else {
		rows = tipi.Extract(pages)
	}
	fmt.Fprintf(os.Stderr, "Extracted %d rows from %d pages\n", len(rows), len(pages))

	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	if path := c.String("out"); path != "" {
		return os.WriteFile(path, b, 0644)
	}
	fmt.Println(string(b))
	return nil
}

// =============================================================================
// REFDATA COMMAND
// =============================================================================

func refdataCommand() *cli.Command {
	return &cli.Command{
		Name:  "refdata",
		Usage: "Build and store the NCM reference table",
		Subcommands: []*cli.Command{
			{
				Name:  "load",
				Usage: "Merge the TEC and NCM workbooks (plus optional TIPI PDF) into the reference store",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "tec",
						Usage:    "Path to the TEC workbook (xlsx)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "ncm",
						Usage: "Path to the NCM statistical-unit workbook (xlsx)",
					},
					&cli.StringFlag{
						Name:  "tipi",
						Usage: "Path to the TIPI PDF for IPI rates",
					},
					&cli.IntFlag{
						Name:  "max-pages",
						Value: 500,
						Usage: "TIPI pages to scan",
					},
				},
				Action: runRefdataLoad,
			},
		},
	}
}

func runRefdataLoad(c *cli.Context) error {
	ctx := context.Background()

	tec, err := ncm.LoadTEC(c.String("tec"), ncm.LoaderOptions{})
	if err != nil {
		return fmt.Errorf("load TEC: %w", err)
	}
	fmt.Fprintf(os.Stderr, "TEC: %d codes\n", len(tec))

	utrib := map[string]ncm.Entry{}
	if path := c.String("ncm"); path != "" {
		utrib, err = ncm.LoadNCMUTrib(path, ncm.LoaderOptions{})
		if err != nil {
			return fmt.Errorf("load NCM workbook: %w", err)
		}
		fmt.Fprintf(os.Stderr, "NCM: %d statistical units\n", len(utrib))
	}

	ipiRates := map[string]float64{}
	if path := c.String("tipi"); path != "" {
		pages, err := tipi.PageTexts(path, c.Int("max-pages"))
		if err != nil {
			return fmt.Errorf("read TIPI: %w", err)
		}
		ipiRates = tipi.RateMap(tipi.ExtractRates(pages))
		fmt.Fprintf(os.Stderr, "TIPI: %d IPI rates\n", len(ipiRates))
	}

	table := ncm.Merge(tec, utrib, ipiRates)
	fmt.Fprintf(os.Stderr, "Merged reference table: %d entries\n", table.Len())

	if os.Getenv("DATABASE_URL") != "" {
		if err := store.InitDB(ctx); err != nil {
			return err
		}
		defer store.Close()
	}
	repo := store.NewNCMRepo(store.GetPool(), c.String("ncm-cache"))
	if err := repo.SaveTable(ctx, table); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Reference table saved")
	return nil
}

// =============================================================================
// FX COMMAND
// =============================================================================

func fxCommand() *cli.Command {
	return &cli.Command{
		Name:  "fx",
		Usage: "Fetch the BCB PTAX USD/BRL rate",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "date",
				Usage: "Fixing date (YYYY-MM-DD, default: most recent)",
			},
		},
		Action: runFX,
	}
}

func runFX(c *cli.Context) error {
	ctx := context.Background()
	client := fx.NewClient()

	var (
		q   fx.Quote
		err error
	)
	if ds := c.String("date"); ds != "" {
		day, perr := time.Parse("2006-01-02", ds)
		if perr != nil {
			return fmt.Errorf("date must be YYYY-MM-DD: %w", perr)
		}
		q, err = client.OnDate(ctx, day)
	} else {
		q, err = client.Latest(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Printf("PTAX %s  compra %.4f  venda %.4f\n", q.At, q.Buy, q.Sell)
	return nil
}
