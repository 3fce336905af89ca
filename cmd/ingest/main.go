package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/kirillkom/ocr-pipeline/internal/bootstrap"
	"github.com/kirillkom/ocr-pipeline/internal/config"
	"github.com/kirillkom/ocr-pipeline/internal/observability/logging"
)

func main() {
	var timeout time.Duration
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "upload timeout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-timeout d] <file>\n", filepath.Base(os.Args[0]))
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg := config.Load()
	logging.Setup("ocr-ingest", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("open file: %v", err)
	}
	defer f.Close()

	doc, job, err := app.Ingestor.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		log.Fatalf("upload: %v", err)
	}

	fmt.Printf("document_id=%s\njob_id=%s\nformat=%s\nsize=%d\n", doc.ID, job.ID, doc.FileType, doc.FileSize)
}
