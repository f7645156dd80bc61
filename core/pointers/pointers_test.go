package pointers

import (
	"testing"
	"time"
)

func TestPointers(t *testing.T) {
	if Value[string](nil) != "" {
		t.Fatal("expected empty string for nil pointer")
	}
	if Value(To("abc")) != "abc" {
		t.Fatal("unexpected value")
	}
	if String("") != nil {
		t.Fatal("expected nil for empty string")
	}
	if *String("x") != "x" {
		t.Fatal("unexpected string value")
	}
	if Value[bool](nil) || !*Bool(true) {
		t.Fatal("unexpected bool value")
	}
	now := time.Now()
	if !Value(To(now)).Equal(now) {
		t.Fatal("unexpected time value")
	}
	if !Value[time.Time](nil).IsZero() {
		t.Fatal("expected zero time")
	}
}
