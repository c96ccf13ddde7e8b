package rfdriver

import (
	"context"
	"fmt"
	"time"

	"github.com/brutella/dnssd"
	"github.com/jochenvg/go-udev"
)

// DiscoveredFrontend describes one candidate RF front-end found on the
// local machine or the local network.
type DiscoveredFrontend struct {
	Name    string
	Kind    string // "usb" or "network"
	Address string // sysfs path for USB, host:port for network
}

// sdrService is the DNS-SD service type network-attached SDR
// front-ends announce under.
const sdrService = "_sdr-iq._tcp."

// usbSDRVendors maps USB vendor IDs to the SDR families worth
// offering. Anything else on the bus is ignored.
var usbSDRVendors = map[string]string{
	"0bda": "rtl-sdr",
	"1d50": "hackrf",
	"2500": "airspy",
	"3923": "usrp",
	"04b4": "sdrplay",
}

// DiscoverUSB enumerates USB devices whose vendor ID matches a known
// SDR family.
func DiscoverUSB() ([]DiscoveredFrontend, error) {
	u := udev.Udev{}
	e := u.NewEnumerate()
	if err := e.AddMatchSubsystem("usb"); err != nil {
		return nil, fmt.Errorf("rfdriver: udev match: %w", err)
	}
	devices, err := e.Devices()
	if err != nil {
		return nil, fmt.Errorf("rfdriver: udev enumerate: %w", err)
	}

	var out []DiscoveredFrontend
	for _, d := range devices {
		vendor := d.PropertyValue("ID_VENDOR_ID")
		family, ok := usbSDRVendors[vendor]
		if !ok {
			continue
		}
		name := d.PropertyValue("ID_MODEL")
		if name == "" {
			name = family
		}
		out = append(out, DiscoveredFrontend{
			Name:    name,
			Kind:    "usb",
			Address: d.Syspath(),
		})
	}
	return out, nil
}

// DiscoverNetwork browses DNS-SD for network-attached front-ends until
// the timeout elapses.
func DiscoverNetwork(ctx context.Context, timeout time.Duration) ([]DiscoveredFrontend, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out []DiscoveredFrontend
	add := func(e dnssd.BrowseEntry) {
		addr := e.Host
		if len(e.IPs) > 0 {
			addr = e.IPs[0].String()
		}
		out = append(out, DiscoveredFrontend{
			Name:    e.Name,
			Kind:    "network",
			Address: fmt.Sprintf("%s:%d", addr, e.Port),
		})
	}
	rmv := func(e dnssd.BrowseEntry) {}

	err := dnssd.LookupType(ctx, sdrService, add, rmv)
	if err != nil && ctx.Err() == nil {
		return out, fmt.Errorf("rfdriver: dns-sd browse: %w", err)
	}
	return out, nil
}

// Discover runs both the USB and network scans and merges the results.
// Either scan failing is non-fatal as long as the other produces
// candidates.
func Discover(ctx context.Context, networkTimeout time.Duration) ([]DiscoveredFrontend, error) {
	usb, usbErr := DiscoverUSB()
	net, netErr := DiscoverNetwork(ctx, networkTimeout)
	all := append(usb, net...)
	if len(all) == 0 && usbErr != nil {
		return nil, usbErr
	}
	if len(all) == 0 && netErr != nil {
		return nil, netErr
	}
	return all, nil
}
