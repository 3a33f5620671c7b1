package main

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"yieldcast/agro"
)

type Config struct {
	MongoURI  string
	MongoDB   string
	JWTSecret string
	Port      string

	// Model parameters exposed to deployment. RUE table and cleaning
	// thresholds keep their agro defaults; the regime is chosen per
	// prediction request.
	HarvestIndex  float64
	BatchWorkers  int
	RecomputeCron string // empty disables the nightly recompute
}

func mustConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		MongoURI:      getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:       getenv("MONGO_DB", "yieldcast"),
		JWTSecret:     getenv("JWT_SECRET", "change_me"),
		Port:          getenv("PORT", "8080"),
		HarvestIndex:  getenvFloat("HARVEST_INDEX", agro.DefaultHarvestIndex().Value),
		BatchWorkers:  getenvInt("BATCH_WORKERS", 4),
		RecomputeCron: getenv("RECOMPUTE_CRON", "0 3 * * *"),
	}

	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("ignoring bad %s=%q", k, v)
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("ignoring bad %s=%q", k, v)
	}
	return def
}
