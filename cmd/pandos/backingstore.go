package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"github.com/tinyrange/pandos/internal/kconst"
)

// preloadBackingStore seeds every attached flash device's blocks from
// cfg.BackingStore.ImageDir/<asid>.img, one UserPageTableSize*PageSize
// byte image per ASID. A missing image directory or a missing
// per-ASID file is not an error — the flash simply stays zeroed, which
// is exactly what a freshly provisioned uproc's backing store looks
// like before anything has been paged out to it.
func preloadBackingStore(r *rig, log *slog.Logger) error {
	bar := progressbar.Default(int64(len(r.Flash)), "preloading backing store")
	defer bar.Close()

	for i, flash := range r.Flash {
		if flash == nil {
			bar.Add(1)
			continue
		}
		asid := i + 1
		path := filepath.Join(r.cfg.BackingStore.ImageDir, fmt.Sprintf("%d.img", asid))
		data, err := os.ReadFile(path)
		if err != nil {
			log.Debug("no backing image, leaving flash zeroed", "asid", asid, "path", path)
			bar.Add(1)
			continue
		}
		for block := 0; block*kconst.PageSize < len(data); block++ {
			start := block * kconst.PageSize
			end := start + kconst.PageSize
			if end > len(data) {
				end = len(data)
			}
			if err := flash.LoadBlock(block, data[start:end]); err != nil {
				return fmt.Errorf("preload asid %d block %d: %w", asid, block, err)
			}
		}
		bar.Add(1)
	}
	return nil
}
