package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pilebones/go-udev/crawler"

	"rawconv/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckReadableDirectory_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckReadableDirectory("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("space", filepath.Join(dir, "missing", "child"), 0); !result.Passed {
		t.Fatalf("expected pass with zero threshold, got: %s", result.Detail)
	}
	result := CheckFreeSpace("space", dir, 1<<62)
	if result.Passed {
		t.Fatal("expected failure for absurd threshold")
	}
	if !strings.Contains(result.Detail, "low disk space") {
		t.Fatalf("unexpected detail: %q", result.Detail)
	}
}

func TestCheckDecoder(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "dcraw")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if result := CheckDecoder(bin); !result.Passed {
		t.Fatalf("expected decoder to be found: %s", result.Detail)
	}
	if result := CheckDecoder(filepath.Join(dir, "absent")); result.Passed {
		t.Fatal("expected failure for missing decoder")
	}
}

func TestEvaluatePower(t *testing.T) {
	battery := func(pct int) PowerSupply {
		return PowerSupply{Name: "BAT0", Type: "Battery", Capacity: pct}
	}
	mains := func(online bool) PowerSupply {
		return PowerSupply{Name: "AC", Type: "Mains", Online: online, Capacity: -1}
	}
	cases := []struct {
		name      string
		supplies  []PowerSupply
		requireAC bool
		passed    bool
	}{
		{"desktop", nil, false, true},
		{"plugged in low battery", []PowerSupply{mains(true), battery(5)}, false, true},
		{"battery above threshold", []PowerSupply{mains(false), battery(80)}, false, true},
		{"battery below threshold", []PowerSupply{mains(false), battery(12)}, false, false},
		{"ac required", []PowerSupply{mains(false), battery(90)}, true, false},
		{"capacity unknown", []PowerSupply{battery(-1)}, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := EvaluatePower(tc.supplies, 20, tc.requireAC)
			if result.Passed != tc.passed {
				t.Fatalf("unexpected result: passed=%v detail=%q", result.Passed, result.Detail)
			}
			if !tc.passed && !strings.HasPrefix(result.Detail, "low power") {
				t.Fatalf("expected low power detail, got %q", result.Detail)
			}
		})
	}
}

func TestParsePowerSupply(t *testing.T) {
	ps := parsePowerSupply("/devices/LNXSYSTM:00/PNP0C0A:00/power_supply/BAT1", map[string]string{
		"POWER_SUPPLY_TYPE":     "Battery",
		"POWER_SUPPLY_CAPACITY": "47",
		"POWER_SUPPLY_STATUS":   "Discharging",
	})
	if ps.Name != "BAT1" || ps.Capacity != 47 || ps.Online || ps.Status != "Discharging" {
		t.Fatalf("unexpected parse: %+v", ps)
	}
}

func TestCheckPowerUnknownStatePasses(t *testing.T) {
	restore := SetPowerSuppliesForTests(func(context.Context) ([]PowerSupply, error) {
		return nil, errors.New("sysfs unavailable")
	})
	defer restore()

	if result := CheckPower(context.Background(), 20, true); !result.Passed {
		t.Fatalf("expected unknown power state to pass, got %q", result.Detail)
	}
}

func gateConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InputDir = filepath.Join(base, "in")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	for _, dir := range []string{cfg.Paths.InputDir, cfg.Paths.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	bin := filepath.Join(base, "dcraw")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg.Decode.Binary = bin
	cfg.Preflight.MinFreeMiB = 0
	return &cfg
}

func TestGateRefusesOnLowBattery(t *testing.T) {
	restore := SetPowerSuppliesForTests(func(context.Context) ([]PowerSupply, error) {
		return []PowerSupply{{Name: "BAT0", Type: "Battery", Capacity: 9}}, nil
	})
	defer restore()

	allowed, message := NewGate(gateConfig(t), nil).Check(context.Background())
	if allowed {
		t.Fatal("expected gate to refuse")
	}
	if !strings.Contains(message, "low power") {
		t.Fatalf("unexpected message: %q", message)
	}
}

func TestGateAllowsHealthyHost(t *testing.T) {
	restore := SetPowerSuppliesForTests(func(context.Context) ([]PowerSupply, error) { return nil, nil })
	defer restore()

	allowed, message := NewGate(gateConfig(t), nil).Check(context.Background())
	if !allowed {
		t.Fatalf("expected gate to allow, got %q", message)
	}
}

func TestGateDisabledAlwaysAllows(t *testing.T) {
	restore := SetPowerSuppliesForTests(func(context.Context) ([]PowerSupply, error) {
		t.Fatal("power should not be probed when the gate is disabled")
		return nil, nil
	})
	defer restore()

	cfg := gateConfig(t)
	cfg.Preflight.Enabled = false
	if allowed, _ := NewGate(cfg, nil).Check(context.Background()); !allowed {
		t.Fatal("expected disabled gate to allow")
	}
}

func TestSummarizeJoinsFailures(t *testing.T) {
	allowed, message := Summarize([]Result{
		{Name: "a", Passed: true, Detail: "fine"},
		{Name: "b", Detail: "low power"},
		{Name: "c", Detail: "low disk space"},
	})
	if allowed || message != "low power; low disk space" {
		t.Fatalf("unexpected summary: %v %q", allowed, message)
	}
}

func TestCollectSuppliesReleasesCrawlerOnCancel(t *testing.T) {
	queue := make(chan crawler.Device)
	errs := make(chan error, 1)
	quit := make(chan struct{}, 1)
	crawlerDone := make(chan struct{})

	// Mimics the crawler: it only notices quit between sends.
	go func() {
		defer close(crawlerDone)
		for {
			select {
			case <-quit:
				close(queue)
				return
			default:
			}
			queue <- crawler.Device{KObj: "/sys/class/power_supply/BAT0", Env: map[string]string{"POWER_SUPPLY_TYPE": "Battery"}}
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := collectSupplies(ctx, queue, errs, quit); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	select {
	case <-crawlerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("crawler goroutine still blocked after cancellation")
	}
}

func TestCollectSuppliesReadsUntilQueueCloses(t *testing.T) {
	queue := make(chan crawler.Device, 2)
	queue <- crawler.Device{KObj: "/sys/class/power_supply/AC", Env: map[string]string{"POWER_SUPPLY_TYPE": "Mains", "POWER_SUPPLY_ONLINE": "1"}}
	queue <- crawler.Device{KObj: "/sys/class/power_supply/BAT0", Env: map[string]string{"POWER_SUPPLY_TYPE": "Battery", "POWER_SUPPLY_CAPACITY": "80"}}
	close(queue)

	supplies, err := collectSupplies(context.Background(), queue, make(chan error, 1), make(chan struct{}, 1))
	if err != nil {
		t.Fatalf("collectSupplies: %v", err)
	}
	if len(supplies) != 2 || supplies[0].Name != "AC" || supplies[1].Capacity != 80 {
		t.Fatalf("unexpected supplies: %+v", supplies)
	}
}
