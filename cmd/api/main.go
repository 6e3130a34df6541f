package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	apifx "custobrasil/pkg/api/fx"
	apincm "custobrasil/pkg/api/ncm"
	"custobrasil/pkg/api/quote"
	"custobrasil/pkg/core/config"
	corefx "custobrasil/pkg/core/fx"
	"custobrasil/pkg/core/store"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Tax rate tables (falls back to built-in defaults when the file is absent)
	ratesPath := os.Getenv("RATES_FILE")
	if ratesPath == "" {
		ratesPath = "config/rates.yaml"
	}
	rates := config.LoadOrDefault(ratesPath)
	fmt.Printf("[RATES] %d state ICMS rates loaded\n", len(rates.ICMSByState))

	// NCM reference store: Postgres when DATABASE_URL is set, CSV cache otherwise
	if os.Getenv("DATABASE_URL") != "" {
		if err := store.InitDB(context.Background()); err != nil {
			fmt.Printf("[WARNING] Database init failed, using CSV cache fallback: %v\n", err)
		} else {
			fmt.Println("[STORE] Using Postgres NCM reference store")
			defer store.Close()
		}
	} else {
		fmt.Println("[STORE] DATABASE_URL not set, using CSV cache fallback")
	}
	apincm.InitHandler(store.NewNCMRepo(store.GetPool(), os.Getenv("NCM_CACHE_FILE")))

	apifx.InitHandler(corefx.NewClient())

	http.HandleFunc("/api/quote/compute", quote.HandleCompute)
	http.HandleFunc("/api/quote/reverse-fob", quote.HandleReverseFOB)
	http.HandleFunc("/api/ncm/lookup", apincm.HandleLookup)
	http.HandleFunc("/api/fx/ptax", apifx.HandlePTAX)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	fmt.Printf("API server starting on :%s...\n", port)
	fmt.Println("  - POST /api/quote/compute")
	fmt.Println("  - POST /api/quote/reverse-fob")
	fmt.Println("  - GET  /api/ncm/lookup?code=8504.40.90")
	fmt.Println("  - GET  /api/fx/ptax?date=YYYY-MM-DD")

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}
