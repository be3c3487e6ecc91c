// Package preflight decides whether a conversion batch may start.
//
// The gate runs once per batch, before any file is enumerated. It checks
// that the input directory is readable, the output directory is writable
// and has enough free space, the RAW decoder is installed, and the machine
// is not running on a low battery. Any failed check refuses the whole
// batch; the CLI "rawconv status" command shows the same results.
//
// Power information comes from the udev power_supply devices under /sys.
// Hosts without any power supply entries (most desktops and containers)
// pass the power check.
package preflight
