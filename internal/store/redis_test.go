// ABOUTME: Tests for the Redis store's key layout and hash codec
// ABOUTME: Pure parts only; connection behavior needs a live server

package store

import "testing"

func TestRedisKeyLayout(t *testing.T) {
	if got := userKey("alice"); got != "user:alice:key" {
		t.Errorf("userKey = %q, want the legacy layout", got)
	}
	if got := documentKey("alice", "doc1"); got != "user:alice:document:doc1" {
		t.Errorf("documentKey = %q, want the legacy layout", got)
	}
}

func TestProgressHashRoundTrip(t *testing.T) {
	p := &Progress{
		Document:   "doc1",
		Percentage: 0.42,
		Progress:   "/body/DocFragment[11]/body/p[3]/text().0",
		Device:     "kobo",
		DeviceID:   "ABC",
		Timestamp:  1724300000,
	}

	hash := progressToHash(p)

	// Redis hands every hash field back as a string
	fields := map[string]string{
		"percentage": "0.42",
		"progress":   p.Progress,
		"device":     p.Device,
		"device_id":  p.DeviceID,
		"timestamp":  "1724300000",
	}
	for k := range fields {
		if _, ok := hash[k]; !ok {
			t.Errorf("progressToHash missing field %q", k)
		}
	}

	got, err := progressFromHash("doc1", fields)
	if err != nil {
		t.Fatalf("progressFromHash failed: %v", err)
	}
	if *got != *p {
		t.Errorf("round trip returned %+v, want %+v", got, p)
	}
}

func TestProgressFromHash_PartialRecord(t *testing.T) {
	// Hashes written by other server implementations may lack fields
	got, err := progressFromHash("doc1", map[string]string{
		"percentage": "0.25",
		"progress":   "12",
	})
	if err != nil {
		t.Fatalf("progressFromHash failed: %v", err)
	}

	if got.Percentage != 0.25 || got.Progress != "12" {
		t.Errorf("parsed fields wrong: %+v", got)
	}
	if got.Device != "" || got.DeviceID != "" || got.Timestamp != 0 {
		t.Errorf("absent fields should be zero values: %+v", got)
	}
}

func TestProgressFromHash_BadNumbers(t *testing.T) {
	if _, err := progressFromHash("doc1", map[string]string{"percentage": "forty"}); err == nil {
		t.Error("expected error for unparseable percentage")
	}
	if _, err := progressFromHash("doc1", map[string]string{"timestamp": "soon"}); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}
