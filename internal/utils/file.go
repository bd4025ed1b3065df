package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	imageExts = []string{"jpg", "jpeg", "png", "gif", "bmp", "tiff", "webp"}
	videoExts = []string{"mp4", "mov", "mkv", "avi", "webm", "m4v", "flv", "ts"}
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the lower-cased file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// IsImageFile checks if a file has an image extension
func IsImageFile(filename string) bool {
	return hasExt(filename, imageExts)
}

// IsVideoFile checks if a file has a video container extension
func IsVideoFile(filename string) bool {
	return hasExt(filename, videoExts)
}

func hasExt(filename string, exts []string) bool {
	ext := GetFileExtension(filename)
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// GenerateOutputFilename derives an output path next to the input, e.g.
// clip.mp4 -> clip_vertical.mp4
func GenerateOutputFilename(inputFile, suffix, format string) string {
	dir := filepath.Dir(inputFile)
	baseName := filepath.Base(inputFile)
	nameWithoutExt := strings.TrimSuffix(baseName, filepath.Ext(baseName))

	if format == "" {
		format = GetFileExtension(inputFile)
		if format == "" {
			format = "mp4"
		}
	}
	return filepath.Join(dir, fmt.Sprintf("%s%s.%s", nameWithoutExt, suffix, format))
}

// ListImageFiles lists the image files directly inside dir in lexical order
func ListImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && IsImageFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists checks if a directory exists
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// FormatFileSize formats file size in human-readable format
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
