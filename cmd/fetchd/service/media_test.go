package service

import "testing"

func TestValidVideoID(t *testing.T) {
	valid := []string{"abc123", "AbC-123_x", "q"}
	for _, id := range valid {
		if !validVideoID(id) {
			t.Errorf("validVideoID(%q) = false, want true", id)
		}
	}

	invalid := []string{"", "../etc/passwd", "a/b", "a.mp4", "id with space", string(make([]byte, 65))}
	for _, id := range invalid {
		if validVideoID(id) {
			t.Errorf("validVideoID(%q) = true, want false", id)
		}
	}
}
