package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "divscan.log")
	Init(Config{Level: "warn", File: path, MaxSizeMB: 1})
	t.Cleanup(func() { Init(Config{Level: "info", Console: true}) })

	Infof("hidden %d", 1)
	Warnf("visible %s", "warning")
	if err := Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(data)
	if strings.Contains(text, "hidden") {
		t.Fatalf("info line should be filtered at warn level: %s", text)
	}
	if !strings.Contains(text, "visible warning") {
		t.Fatalf("warn line missing: %s", text)
	}
	if Enabled("info") || !Enabled("error") {
		t.Fatalf("level gate mismatch")
	}
	SetLevel("debug")
	if !Enabled("debug") {
		t.Fatalf("SetLevel did not apply")
	}
}
