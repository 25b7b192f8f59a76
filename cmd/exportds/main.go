// exportds exports the prediction ledger as a training dataset CSV with all
// engineered feature columns populated.
package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/phenomenon0/betledger/pkg/ledger"
)

var (
	ledgerPath = flag.String("ledger", "./data/predictions.csv", "Path to the ledger file")
	outPath    = flag.String("out", "-", "Output path, - for stdout")
	dropUnprob = flag.Bool("drop-missing-probs", false, "Drop rows without a complete 1X2 probability snapshot")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime)

	store, err := ledger.Open(*ledgerPath, nil)
	if err != nil {
		log.Fatalf("Failed to open ledger: %v", err)
	}

	rows := store.ExportDataset(ledger.ExportOptions{DropMissingProbs: *dropUnprob})

	var out io.Writer = os.Stdout
	if *outPath != "-" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("Failed to create output: %v", err)
		}
		defer f.Close()
		out = f
	}

	if err := ledger.WriteDatasetCSV(out, rows); err != nil {
		log.Fatalf("Failed to write dataset: %v", err)
	}
	log.Printf("Exported %d of %d rows", len(rows), store.Len())
}
