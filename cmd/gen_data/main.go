package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"housevalue/dataset"
)

func main() {
	out := flag.String("out", "data/houses.csv", "output CSV path")
	rows := flag.Int("rows", 2000, "number of houses")
	blobs := flag.Int("blobs", 8, "number of location blobs")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	cfg := dataset.DefaultSyntheticConfig()
	cfg.Rows = *rows
	cfg.Blobs = *blobs
	cfg.Seed = *seed

	records, err := dataset.Synthetic(cfg)
	if err != nil {
		log.Fatalf("failed to generate data: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatalf("failed to create output dir: %v", err)
	}
	if err := dataset.WriteCSV(*out, records); err != nil {
		log.Fatalf("failed to write %s: %v", *out, err)
	}
	log.Printf("wrote %d rows to %s", len(records), *out)
}
