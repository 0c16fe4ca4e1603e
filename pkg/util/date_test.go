package util

import (
	"testing"
	"time"
)

func TestUnixMillis(t *testing.T) {
	got := UnixMillis(1728555010000)
	if got.Unix() != 1728555010 || got.Location() != time.UTC {
		t.Fatalf("unexpected %v", got)
	}
}

func TestStartOfDay(t *testing.T) {
	in := time.Date(2024, 10, 10, 23, 59, 1, 5, time.UTC)
	if got := StartOfDay(in); !got.Equal(time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected %v", got)
	}
}
