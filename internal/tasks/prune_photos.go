package tasks

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/catalog/internal/utils"
)

// QueuePruneProfilePhotos is the backlite queue name for orphan photo removal.
const QueuePruneProfilePhotos = "prune_profile_photos"

// PhotoGracePeriod protects fresh uploads whose profile row may not be
// saved yet.
const PhotoGracePeriod = 10 * time.Minute

// PhotoIndex lists the profile photo paths that are still referenced.
type PhotoIndex interface {
	ProfilePhotoPaths() ([]string, error)
}

// PruneProfilePhotosTask deletes uploaded photos no user points at, e.g.
// after users were deleted.
type PruneProfilePhotosTask struct{}

func (t PruneProfilePhotosTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueuePruneProfilePhotos,
		MaxAttempts: 2,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration: 24 * time.Hour,
			Data:     &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PruneProfilePhotos removes files under mediaDir/profile_photos that are
// not in the index and returns how many were deleted. Files modified
// within PhotoGracePeriod are left alone.
func PruneProfilePhotos(index PhotoIndex, mediaDir string) (int, error) {
	cutoff := time.Now().Add(-PhotoGracePeriod)
	referenced, err := index.ProfilePhotoPaths()
	if err != nil {
		return 0, fmt.Errorf("list profile photos: %w", err)
	}
	keep := make(map[string]bool, len(referenced))
	for _, p := range referenced {
		keep[path.Clean(p)] = true
	}

	entries, err := os.ReadDir(filepath.Join(mediaDir, utils.ProfilePhotoDir))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read photo directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		rel := path.Join(utils.ProfilePhotoDir, entry.Name())
		if keep[rel] {
			continue
		}
		info, err := entry.Info()
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("stat %s: %w", rel, err)
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(mediaDir, filepath.FromSlash(rel))); err != nil {
			return removed, fmt.Errorf("remove %s: %w", rel, err)
		}
		removed++
	}
	return removed, nil
}

// NewPruneProfilePhotosQueue creates the backlite queue for photo pruning.
func NewPruneProfilePhotosQueue(index PhotoIndex, mediaDir string) backlite.Queue {
	return backlite.NewQueue(func(ctx context.Context, task PruneProfilePhotosTask) error {
		removed, err := PruneProfilePhotos(index, mediaDir)
		if err != nil {
			return err
		}
		log.Printf("[TASK] Pruned %d orphaned profile photos", removed)
		return nil
	})
}
