package adapters_test

import (
	"testing"
	"time"

	"github.com/taskline/dispatcher/adapters"
)

func TestControlAdapterBasic(t *testing.T) {
	ctrl := adapters.NewControlAdapter(nil)
	cfg := ctrl.GetConfig()
	if len(cfg) != 0 {
		t.Error("Expected empty config on init")
	}
	err := ctrl.SetConfig(map[string]any{"k": 1})
	if err != nil {
		t.Fatal(err)
	}
	cfg = ctrl.GetConfig()
	if cfg["k"] != 1 {
		t.Error("SetConfig did not apply")
	}
	called := make(chan struct{}, 1)
	ctrl.OnReload(func() { called <- struct{}{} })
	ctrl.SetConfig(map[string]any{"x": 2})
	select {
	case <-called:
	case <-time.After(time.Second):
		t.Error("Reload hook not called")
	}
}

func TestControlAdapterStatsIncludesDebugProbes(t *testing.T) {
	ctrl := adapters.NewControlAdapter(nil)
	ctrl.RegisterDebugProbe("custom", func() any { return 7 })
	stats := ctrl.Stats()
	if stats["debug.custom"] != 7 {
		t.Errorf("got %v, want 7", stats["debug.custom"])
	}
}
