package utils

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ProfilePhotoDir is the media subdirectory holding uploaded profile photos.
const ProfilePhotoDir = "profile_photos"

var ErrUnsupportedImage = errors.New("unsupported image type")

// imageExtensions maps accepted upload extensions to their canonical form.
var imageExtensions = map[string]string{
	".jpg":  "jpg",
	".jpeg": "jpg",
	".png":  "png",
	".gif":  "gif",
	".webp": "webp",
}

// ImageExtension returns the canonical extension of an uploaded image
// file name, or ErrUnsupportedImage.
func ImageExtension(filename string) (string, error) {
	ext, ok := imageExtensions[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, filepath.Ext(filename))
	}
	return ext, nil
}

// ProfilePhotoPath returns the media-relative path a user's photo is stored
// under, e.g. "profile_photos/user_7_profile.png". The client-supplied name
// only contributes its extension.
func ProfilePhotoPath(userID uint, uploadedName string) (string, error) {
	ext, err := ImageExtension(uploadedName)
	if err != nil {
		return "", err
	}
	return path.Join(ProfilePhotoDir, fmt.Sprintf("user_%d_profile.%s", userID, ext)), nil
}
