// Command guideindex builds the travel guide passage index consumed by
// the travel_guide tool. Run it offline whenever the guide texts
// change:
//
//	guideindex -guides ./guides -out ./guide.db
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"tripgraph/pkg/tools/guide"
)

func main() {
	var (
		guidesDir = flag.String("guides", "guides", "directory of .txt guide files")
		outPath   = flag.String("out", "guide.db", "path of the index database to write")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ix, err := guide.Open(*outPath)
	if err != nil {
		logger.Error("open index", "path", *outPath, "error", err)
		os.Exit(1)
	}
	defer ix.Close()

	n, err := ix.BuildFromDir(context.Background(), *guidesDir)
	if err != nil {
		logger.Error("build index", "guides", *guidesDir, "error", err)
		os.Exit(1)
	}
	logger.Info("index built", "passages", n, "path", *outPath)
}
