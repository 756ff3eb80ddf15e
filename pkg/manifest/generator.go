package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dtnitsch/downapk/pkg/transfer"
	"gopkg.in/yaml.v3"
)

// Generate builds the manifest for a finished run. Every file is hashed
// from disk so the manifest reflects what was actually written.
func Generate(runID, packageID, releaseURL string, results []transfer.Result) (RunManifest, error) {
	m := RunManifest{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		RunID:       runID,
		PackageID:   packageID,
		ReleaseURL:  releaseURL,
		TotalFiles:  len(results),
		Files:       make([]FileSummary, 0, len(results)),
	}

	for _, r := range results {
		sum, size, err := hashFile(r.Path)
		if err != nil {
			return RunManifest{}, err
		}
		m.TotalBytes += size
		m.Files = append(m.Files, FileSummary{
			Path:         r.Path,
			SizeBytes:    size,
			SHA256:       sum,
			Version:      r.Variant.Version,
			Type:         r.Variant.Type,
			Architecture: r.Variant.Architecture,
			MinOSVersion: r.Variant.MinOSVersion,
			ScreenDPI:    r.Variant.ScreenDPI,
			DownloadURL:  r.Variant.DownloadLink,
		})
	}
	return m, nil
}

// Write saves m to path. A .yaml or .yml extension selects YAML, anything
// else is written as indented JSON.
func Write(path string, m RunManifest) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(m)
	default:
		data, err = json.MarshalIndent(m, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("error marshalling manifest: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating manifest directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error saving manifest: %w", err)
	}
	return nil
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("error hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
