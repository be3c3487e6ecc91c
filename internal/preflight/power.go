package preflight

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pilebones/go-udev/crawler"
	"github.com/pilebones/go-udev/netlink"
)

// PowerSupply is one entry from the udev power_supply class.
type PowerSupply struct {
	Name     string
	Type     string // Mains, Battery, USB, UPS
	Online   bool
	Capacity int // percent; -1 when unknown
	Status   string
}

// IsExternal reports whether the supply feeds the machine from outside.
func (p PowerSupply) IsExternal() bool {
	switch p.Type {
	case "Mains", "USB", "USB_C", "USB_PD":
		return true
	default:
		return false
	}
}

// powerSupplies is package-level so tests can simulate laptops on battery.
var powerSupplies = udevPowerSupplies

// SetPowerSuppliesForTests overrides the power supply source during tests.
func SetPowerSuppliesForTests(fn func(ctx context.Context) ([]PowerSupply, error)) func() {
	previous := powerSupplies
	powerSupplies = fn
	return func() {
		powerSupplies = previous
	}
}

// CheckPower refuses when the machine is on battery below minPercent, or on
// battery at all when requireAC is set.
func CheckPower(ctx context.Context, minPercent int, requireAC bool) Result {
	const name = "Power"
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	supplies, err := powerSupplies(checkCtx)
	if err != nil {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("power state unknown (%v)", err)}
	}
	return EvaluatePower(supplies, minPercent, requireAC)
}

// EvaluatePower applies the power policy to a snapshot of supplies.
func EvaluatePower(supplies []PowerSupply, minPercent int, requireAC bool) Result {
	const name = "Power"
	if len(supplies) == 0 {
		return Result{Name: name, Passed: true, Detail: "no power supply reported (assuming mains)"}
	}

	lowest := -1
	for _, s := range supplies {
		if s.IsExternal() && s.Online {
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("on external power (%s)", s.Name)}
		}
		if s.Type == "Battery" && s.Capacity >= 0 && (lowest < 0 || s.Capacity < lowest) {
			lowest = s.Capacity
		}
	}

	if requireAC {
		return Result{Name: name, Detail: "low power (on battery; AC power required)"}
	}
	if lowest < 0 {
		return Result{Name: name, Passed: true, Detail: "on battery (capacity unknown)"}
	}
	if lowest < minPercent {
		return Result{Name: name, Detail: fmt.Sprintf("low power (battery %d%% < %d%%)", lowest, minPercent)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("on battery (%d%%)", lowest)}
}

// udevPowerSupplies crawls /sys for power_supply devices.
func udevPowerSupplies(ctx context.Context) ([]PowerSupply, error) {
	queue := make(chan crawler.Device)
	errs := make(chan error, 1)
	matcher := &netlink.RuleDefinitions{}
	matcher.AddRule(netlink.RuleDefinition{
		Env: map[string]string{"POWER_SUPPLY_TYPE": ".+"},
	})
	quit := crawler.ExistingDevices(queue, errs, matcher)
	return collectSupplies(ctx, queue, errs, quit)
}

// collectSupplies reads crawled devices until the queue closes. On early
// exit it stops the crawler and drains the queue so a pending send cannot
// block the crawler forever.
func collectSupplies(ctx context.Context, queue <-chan crawler.Device, errs <-chan error, quit chan struct{}) ([]PowerSupply, error) {
	stop := func() {
		close(quit)
		go func() {
			for range queue {
			}
		}()
	}

	var supplies []PowerSupply
	for {
		select {
		case <-ctx.Done():
			stop()
			return nil, ctx.Err()
		case err := <-errs:
			stop()
			return nil, fmt.Errorf("crawl power supplies: %w", err)
		case device, more := <-queue:
			if !more {
				return supplies, nil
			}
			supplies = append(supplies, parsePowerSupply(device.KObj, device.Env))
		}
	}
}

func parsePowerSupply(kobj string, env map[string]string) PowerSupply {
	name := env["POWER_SUPPLY_NAME"]
	if name == "" {
		name = kobj[strings.LastIndex(kobj, "/")+1:]
	}
	capacity := -1
	if v, err := strconv.Atoi(strings.TrimSpace(env["POWER_SUPPLY_CAPACITY"])); err == nil {
		capacity = v
	}
	return PowerSupply{
		Name:     name,
		Type:     env["POWER_SUPPLY_TYPE"],
		Online:   strings.TrimSpace(env["POWER_SUPPLY_ONLINE"]) == "1",
		Capacity: capacity,
		Status:   env["POWER_SUPPLY_STATUS"],
	}
}
