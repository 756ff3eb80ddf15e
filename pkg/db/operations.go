package db

import (
	"fmt"
	"time"

	"github.com/dtnitsch/downapk/models"
)

// Search is one recorded search or listing request.
type Search struct {
	SearchID      int64     `json:"search_id" yaml:"search_id"`
	RunID         string    `json:"run_id" yaml:"run_id"`
	Query         string    `json:"query" yaml:"query"`
	VersionFilter string    `json:"version_filter,omitempty" yaml:"version_filter,omitempty"`
	ResultCount   int       `json:"result_count" yaml:"result_count"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
}

// Download is one file written by the transfer manager.
type Download struct {
	DownloadID   int64     `json:"download_id" yaml:"download_id"`
	RunID        string    `json:"run_id" yaml:"run_id"`
	PackageID    string    `json:"package_id" yaml:"package_id"`
	Version      string    `json:"version" yaml:"version"`
	PackageType  string    `json:"type" yaml:"type"`
	Architecture string    `json:"architecture" yaml:"architecture"`
	MinOS        string    `json:"min_os" yaml:"min_os"`
	ScreenDPI    string    `json:"screen_dpi" yaml:"screen_dpi"`
	ReleaseURL   string    `json:"release_url,omitempty" yaml:"release_url,omitempty"`
	DownloadURL  string    `json:"download_url" yaml:"download_url"`
	FilePath     string    `json:"file_path" yaml:"file_path"`
	SizeBytes    int64     `json:"size_bytes" yaml:"size_bytes"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// RecordSearch stores a search and returns its search_id.
func (db *DB) RecordSearch(runID, query, versionFilter string, resultCount int) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO searches (run_id, query, version_filter, result_count)
		VALUES (?, ?, ?, ?)
	`, runID, query, versionFilter, resultCount)
	if err != nil {
		return 0, fmt.Errorf("failed to record search: %w", err)
	}

	searchID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get search ID: %w", err)
	}
	return searchID, nil
}

// RecordDownload stores a finished download and returns its download_id.
func (db *DB) RecordDownload(runID, packageID, releaseURL string, v models.VariantDescriptor, filePath string, sizeBytes int64) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO downloads (run_id, package_id, version, package_type, architecture,
		                       min_os, screen_dpi, release_url, download_url, file_path, size_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, packageID, v.Version, string(v.Type), v.Architecture,
		v.MinOSVersion, v.ScreenDPI, releaseURL, v.DownloadLink, filePath, sizeBytes)
	if err != nil {
		return 0, fmt.Errorf("failed to record download: %w", err)
	}

	downloadID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get download ID: %w", err)
	}
	return downloadID, nil
}

// ListDownloads returns the newest downloads first, optionally only those of
// one package. limit <= 0 means no limit.
func (db *DB) ListDownloads(limit int, packageID string) ([]Download, error) {
	query := `
		SELECT download_id, run_id, package_id, version, package_type, architecture,
		       COALESCE(min_os, ''), screen_dpi, COALESCE(release_url, ''), download_url,
		       file_path, size_bytes, created_at
		FROM downloads
	`
	var args []interface{}
	if packageID != "" {
		query += " WHERE package_id = ?"
		args = append(args, packageID)
	}
	query += " ORDER BY download_id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}
	defer rows.Close()

	var downloads []Download
	for rows.Next() {
		var d Download
		if err := rows.Scan(&d.DownloadID, &d.RunID, &d.PackageID, &d.Version, &d.PackageType,
			&d.Architecture, &d.MinOS, &d.ScreenDPI, &d.ReleaseURL, &d.DownloadURL,
			&d.FilePath, &d.SizeBytes, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}
		downloads = append(downloads, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}

	return downloads, nil
}

// ListSearches returns the newest searches first. limit <= 0 means no limit.
func (db *DB) ListSearches(limit int) ([]Search, error) {
	query := `
		SELECT search_id, run_id, query, COALESCE(version_filter, ''), result_count, created_at
		FROM searches
		ORDER BY search_id DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}
	defer rows.Close()

	var searches []Search
	for rows.Next() {
		var s Search
		if err := rows.Scan(&s.SearchID, &s.RunID, &s.Query, &s.VersionFilter, &s.ResultCount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search: %w", err)
		}
		searches = append(searches, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}

	return searches, nil
}

// CountDownloads returns how many downloads a run recorded.
func (db *DB) CountDownloads(runID string) (int, error) {
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM downloads WHERE run_id = ?", runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count downloads: %w", err)
	}
	return n, nil
}
