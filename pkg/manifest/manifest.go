package manifest

import "github.com/dtnitsch/downapk/models"

// RunManifest summarizes the files written by one download run.
// It lets a later step verify the binaries without re-reading the history database.
type RunManifest struct {
	GeneratedAt string        `json:"generated_at" yaml:"generated_at"`
	RunID       string        `json:"run_id" yaml:"run_id"`
	PackageID   string        `json:"package_id" yaml:"package_id"`
	ReleaseURL  string        `json:"release_url" yaml:"release_url"`
	TotalFiles  int           `json:"total_files" yaml:"total_files"`
	TotalBytes  int64         `json:"total_bytes" yaml:"total_bytes"`
	Files       []FileSummary `json:"files" yaml:"files"`
}

// FileSummary describes one downloaded variant.
type FileSummary struct {
	Path         string             `json:"path" yaml:"path"`
	SizeBytes    int64              `json:"size_bytes" yaml:"size_bytes"`
	SHA256       string             `json:"sha256" yaml:"sha256"`
	Version      string             `json:"version" yaml:"version"`
	Type         models.PackageType `json:"type" yaml:"type"`
	Architecture string             `json:"architecture" yaml:"architecture"`
	MinOSVersion string             `json:"min_os_version" yaml:"min_os_version"`
	ScreenDPI    string             `json:"screen_dpi" yaml:"screen_dpi"`
	DownloadURL  string             `json:"download_url" yaml:"download_url"`
}
