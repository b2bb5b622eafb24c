// Command report_cleanup prunes generated report files older than the
// signed URL lifetime. Intended to run from cron.
package main

import (
	"flag"
	"log"

	"github.com/medlearn/lms-api/pkg/config"
	"github.com/medlearn/lms-api/pkg/storage"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "list files that would be removed without deleting them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		log.Fatalf("failed to open report storage: %v", err)
	}

	if *dryRun {
		log.Printf("dry run: would prune files older than %s from %s", cfg.Reports.SignedURLTTL, cfg.Reports.StorageDir)
		return
	}

	removed, err := files.CleanupOlderThan(cfg.Reports.SignedURLTTL)
	if err != nil {
		log.Fatalf("cleanup failed: %v", err)
	}

	log.Printf("removed %d expired report file(s)", len(removed))
}
