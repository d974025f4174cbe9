package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"topovibe/pkg/config"
)

func TestWatchConfig(t *testing.T) {
	dir := t.TempDir()
	watched := writeFile(t, dir, "system.json", `{}`)
	other := writeFile(t, dir, "other.json", `{}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloads := config.WatchConfig(ctx, 20*time.Millisecond, watched)

	// 非監看檔案不應觸發
	if err := os.WriteFile(other, []byte(`{"a":1}`), 0644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(watched, []byte(`{"log_level":"debug"}`), 0644); err != nil {
			t.Fatal(err)
		}
	}

	want, _ := filepath.Abs(watched)
	select {
	case got := <-reloads:
		if got != want {
			t.Errorf("reload for %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reload signal")
	}

	// The burst above is debounced into a single signal.
	select {
	case got := <-reloads:
		t.Errorf("unexpected extra reload for %q", got)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case _, ok := <-reloads:
		if ok {
			t.Error("expected channel to close after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
