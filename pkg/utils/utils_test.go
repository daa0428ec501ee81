package utils

import (
	"testing"
	"time"
)

func TestGraterOrEqDefOr(t *testing.T) {
	if v := GraterOrEqDefOr(5, 10); v != 10 {
		t.Errorf("expected 10, got %d", v)
	}
	if v := GraterOrEqDefOr(15, 10); v != 15 {
		t.Errorf("expected 15, got %d", v)
	}
	if v := GraterOrEqDefOr(time.Second, 5*time.Second); v != 5*time.Second {
		t.Errorf("expected 5s, got %s", v)
	}
}

func TestParseOrPanic(t *testing.T) {
	if v := ParseOrPanic[int]("42"); v != 42 {
		t.Errorf("expected 42, got %d", v)
	}
	if v := ParseOrPanic[bool]("true"); !v {
		t.Errorf("expected true")
	}
	if v := ParseOrPanic[time.Duration]("15s"); v != 15*time.Second {
		t.Errorf("expected 15s, got %s", v)
	}
	if v := ParseOrPanic[string]("localhost:4711"); v != "localhost:4711" {
		t.Errorf("unexpected %s", v)
	}
}

func TestParseOrPanicPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on malformed int")
		}
	}()

	_ = ParseOrPanic[int]("forty two")
}

func TestParseEnvOr(t *testing.T) {
	t.Setenv("SUB_TRIGGER_TEST_INT", "7")
	t.Setenv("SUB_TRIGGER_TEST_EMPTY", "")

	if v := ParseEnvOr("SUB_TRIGGER_TEST_INT", 1); v != 7 {
		t.Errorf("expected 7, got %d", v)
	}
	if v := ParseEnvOr("SUB_TRIGGER_TEST_EMPTY", 3); v != 3 {
		t.Errorf("expected default 3, got %d", v)
	}
	if v := ParseEnvOr("SUB_TRIGGER_TEST_MISSING", "config.json"); v != "config.json" {
		t.Errorf("expected default, got %s", v)
	}
}
