package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Level(t *testing.T) {
	log, err := New("DEBUG")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug enabled")
	}
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	log, err := New("chatty")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if log.Core().Enabled(zapcore.DebugLevel) || !log.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("expected info level")
	}
}

func TestForService(t *testing.T) {
	log, err := ForService("warn", "comments", "production")
	if err != nil {
		t.Fatalf("for service: %v", err)
	}
	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("expected info disabled at warn")
	}
}
