package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dtnitsch/downapk/models"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	database := &DB{path: ":memory:"}
	var err error
	database.DB, err = openDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	// every pooled connection would get its own empty :memory: database
	database.SetMaxOpenConns(1)

	if err := database.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	return database
}

func testVariant(arch string) models.VariantDescriptor {
	return models.VariantDescriptor{
		Version:      "2.0.0",
		Type:         models.PackageTypeAPK,
		Architecture: arch,
		MinOSVersion: "Android 8.0+",
		ScreenDPI:    "nodpi",
		DownloadLink: "https://example.com/download.php?id=" + arch,
	}
}

func TestRecordSearch(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	id1, err := db.RecordSearch("run-1", "com.example.app", "", 3)
	if err != nil {
		t.Fatalf("RecordSearch() failed: %v", err)
	}
	id2, err := db.RecordSearch("run-2", "com.other", "1.0", 0)
	if err != nil {
		t.Fatalf("RecordSearch() failed: %v", err)
	}
	if id2 <= id1 {
		t.Errorf("search IDs not increasing: %d then %d", id1, id2)
	}

	searches, err := db.ListSearches(0)
	if err != nil {
		t.Fatalf("ListSearches() failed: %v", err)
	}
	if len(searches) != 2 {
		t.Fatalf("ListSearches() returned %d, want 2", len(searches))
	}
	if searches[0].Query != "com.other" || searches[0].VersionFilter != "1.0" {
		t.Errorf("newest search = %+v", searches[0])
	}
	if searches[1].ResultCount != 3 || searches[1].RunID != "run-1" {
		t.Errorf("oldest search = %+v", searches[1])
	}
	if searches[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	limited, err := db.ListSearches(1)
	if err != nil {
		t.Fatalf("ListSearches(1) failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("ListSearches(1) returned %d", len(limited))
	}
}

func TestRecordDownload(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	v := testVariant("arm64-v8a")
	id, err := db.RecordDownload("run-1", "com.example.app", "https://example.com/apk/app/", v, "downloads/a.apk", 4096)
	if err != nil {
		t.Fatalf("RecordDownload() failed: %v", err)
	}
	if id <= 0 {
		t.Errorf("RecordDownload() id = %d", id)
	}

	got, err := db.ListDownloads(0, "")
	if err != nil {
		t.Fatalf("ListDownloads() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListDownloads() returned %d, want 1", len(got))
	}
	d := got[0]
	if d.PackageID != "com.example.app" || d.PackageType != "APK" || d.Architecture != "arm64-v8a" {
		t.Errorf("download = %+v", d)
	}
	if d.MinOS != v.MinOSVersion || d.ScreenDPI != v.ScreenDPI || d.DownloadURL != v.DownloadLink {
		t.Errorf("variant fields not stored: %+v", d)
	}
	if d.FilePath != "downloads/a.apk" || d.SizeBytes != 4096 {
		t.Errorf("file fields = %q / %d", d.FilePath, d.SizeBytes)
	}
	if time.Since(d.CreatedAt) > 24*time.Hour {
		t.Errorf("CreatedAt = %v, want recent", d.CreatedAt)
	}
}

func TestListDownloads_Filter(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for _, rec := range []struct {
		run, pkg, arch string
	}{
		{"run-1", "com.example.app", "arm64-v8a"},
		{"run-1", "com.example.app", "armeabi-v7a"},
		{"run-2", "com.other", "x86"},
	} {
		if _, err := db.RecordDownload(rec.run, rec.pkg, "", testVariant(rec.arch), rec.arch+".apk", 1); err != nil {
			t.Fatalf("RecordDownload() failed: %v", err)
		}
	}

	tests := []struct {
		name      string
		limit     int
		packageID string
		wantArch  []string
	}{
		{name: "all newest first", wantArch: []string{"x86", "armeabi-v7a", "arm64-v8a"}},
		{name: "limit", limit: 2, wantArch: []string{"x86", "armeabi-v7a"}},
		{name: "by package", packageID: "com.example.app", wantArch: []string{"armeabi-v7a", "arm64-v8a"}},
		{name: "unknown package", packageID: "com.none"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListDownloads(tt.limit, tt.packageID)
			if err != nil {
				t.Fatalf("ListDownloads() failed: %v", err)
			}
			if len(got) != len(tt.wantArch) {
				t.Fatalf("ListDownloads() returned %d, want %d", len(got), len(tt.wantArch))
			}
			for i, d := range got {
				if d.Architecture != tt.wantArch[i] {
					t.Errorf("row %d arch = %q, want %q", i, d.Architecture, tt.wantArch[i])
				}
			}
		})
	}

	n, err := db.CountDownloads("run-1")
	if err != nil {
		t.Fatalf("CountDownloads() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("CountDownloads(run-1) = %d, want 2", n)
	}
}

func TestOpen_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "history.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if _, err := db.RecordSearch("run", "q", "", 0); err != nil {
		t.Fatalf("RecordSearch() on fresh file failed: %v", err)
	}
	db.Close()

	// reopening keeps existing rows
	db, err = Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer db.Close()
	searches, err := db.ListSearches(0)
	if err != nil {
		t.Fatalf("ListSearches() failed: %v", err)
	}
	if len(searches) != 1 {
		t.Errorf("ListSearches() after reopen returned %d, want 1", len(searches))
	}
}
