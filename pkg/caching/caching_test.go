package caching

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache() failed: %v", err)
	}

	url := "https://www.apkmirror.com/?s=com.example.app"
	if _, ok := c.Get(url); ok {
		t.Fatal("Get() hit on empty cache")
	}
	if err := c.Set(url, []byte("<html>page</html>")); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	data, ok := c.Get(url)
	if !ok {
		t.Fatal("Get() missed after Set()")
	}
	if string(data) != "<html>page</html>" {
		t.Errorf("Get() = %q", data)
	}
}

func TestCache_Expired(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Minute)
	if err != nil {
		t.Fatalf("NewCache() failed: %v", err)
	}
	url := "https://example.com/release/"
	if err := c.Set(url, []byte("x")); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, ok := c.Get(url); ok {
		t.Error("Get() returned an expired entry")
	}
}

func TestCache_DisabledWithZeroTTL(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := NewCache(dir, 0)
	if err != nil {
		t.Fatalf("NewCache() failed: %v", err)
	}
	if c.Enabled() {
		t.Fatal("cache with zero ttl reports enabled")
	}
	if err := c.Set("u", []byte("x")); err != nil {
		t.Fatalf("Set() on disabled cache failed: %v", err)
	}
	if _, ok := c.Get("u"); ok {
		t.Error("disabled cache returned a hit")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("disabled cache created its directory")
	}
}

func TestCache_Delete(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache() failed: %v", err)
	}
	if err := c.Set("u", []byte("x")); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := c.Delete("u"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, ok := c.Get("u"); ok {
		t.Error("Get() hit after Delete()")
	}
	if err := c.Delete("u"); err != nil {
		t.Errorf("second Delete() failed: %v", err)
	}
}
