package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/keyseek/harvest/models"
)

func testContent(url string) *models.ExtractedContent {
	return &models.ExtractedContent{URL: url, Title: "t", Text: "body text"}
}

func TestCache_PutGet(t *testing.T) {
	c := New(10, time.Hour)
	defer c.Close()

	c.Put("https://example.com/a", testContent("https://example.com/a"))

	got, ok := c.Get("https://example.com/a")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.URL != "https://example.com/a" {
		t.Errorf("wrong content returned: %s", got.URL)
	}
}

func TestCache_Miss(t *testing.T) {
	c := New(10, time.Hour)
	defer c.Close()

	if _, ok := c.Get("https://example.com/missing"); ok {
		t.Error("expected cache miss for unknown key")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := New(10, 10*time.Millisecond)
	defer c.Close()

	c.Put("https://example.com/a", testContent("https://example.com/a"))
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("https://example.com/a"); ok {
		t.Error("expired entry should not be returned")
	}
}

func TestCache_EvictsOldestWhenFull(t *testing.T) {
	c := New(3, time.Hour)
	defer c.Close()

	for i := 0; i < 3; i++ {
		url := fmt.Sprintf("https://example.com/%d", i)
		c.Put(url, testContent(url))
		time.Sleep(time.Millisecond) // distinct createdAt values
	}
	c.Put("https://example.com/new", testContent("https://example.com/new"))

	if c.Len() != 3 {
		t.Fatalf("cache exceeded capacity: %d entries", c.Len())
	}
	if _, ok := c.Get("https://example.com/0"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := c.Get("https://example.com/new"); !ok {
		t.Error("newest entry should be present")
	}
}
