package tasks

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticIndex []string

func (s staticIndex) ProfilePhotoPaths() ([]string, error) {
	return s, nil
}

// writePhoto creates a photo last modified age ago.
func writePhoto(t *testing.T, mediaDir, name string, age time.Duration) {
	t.Helper()
	dir := filepath.Join(mediaDir, "profile_photos")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	file := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(file, []byte("img"), 0o644))
	modified := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(file, modified, modified))
}

func TestPruneProfilePhotos(t *testing.T) {
	mediaDir := t.TempDir()
	writePhoto(t, mediaDir, "user_1_profile.png", time.Hour)
	writePhoto(t, mediaDir, "user_2_profile.jpg", time.Hour)
	writePhoto(t, mediaDir, "user_3_profile.gif", time.Hour)

	removed, err := PruneProfilePhotos(staticIndex{"profile_photos/user_1_profile.png", "profile_photos/user_3_profile.gif"}, mediaDir)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(mediaDir, "profile_photos", "user_2_profile.jpg"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(mediaDir, "profile_photos", "user_1_profile.png"))
	assert.NoError(t, err)
}

func TestPruneProfilePhotos_NoDirectory(t *testing.T) {
	removed, err := PruneProfilePhotos(staticIndex{}, t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestPruneProfilePhotos_KeepsFreshUploads(t *testing.T) {
	mediaDir := t.TempDir()
	writePhoto(t, mediaDir, "user_4_profile.png", time.Second)
	writePhoto(t, mediaDir, "user_5_profile.png", PhotoGracePeriod+time.Minute)

	removed, err := PruneProfilePhotos(staticIndex{}, mediaDir)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(mediaDir, "profile_photos", "user_4_profile.png"))
	assert.NoError(t, err, "an upload whose profile is not saved yet survives")
	_, err = os.Stat(filepath.Join(mediaDir, "profile_photos", "user_5_profile.png"))
	assert.True(t, os.IsNotExist(err))
}
