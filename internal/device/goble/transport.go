package goble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/pulse/internal/bledb"
	"github.com/srg/pulse/internal/device"
)

// DefaultScanTimeout bounds device selection scans.
const DefaultScanTimeout = 10 * time.Second

// DefaultConnectTimeout bounds a GATT connect.
const DefaultConnectTimeout = 30 * time.Second

// Options configure a Transport.
type Options struct {
	ScanTimeout    time.Duration
	ConnectTimeout time.Duration
	// Picker chooses among scan candidates. Nil picks the first one seen.
	Picker device.Picker
}

// Transport implements device.Transport over a Radio.
type Transport struct {
	radio  Radio
	logger *logrus.Logger
	opts   Options
}

// NewTransport creates a transport. Zero timeouts take the package defaults.
func NewTransport(radio Radio, logger *logrus.Logger, opts Options) *Transport {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = DefaultScanTimeout
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	return &Transport{radio: radio, logger: logger, opts: opts}
}

// Scan collects advertising devices that pass filter, in first-seen order.
// With filter.Address set, the scan ends as soon as that device is seen.
func (t *Transport) Scan(ctx context.Context, filter *device.RequestFilter) ([]device.Candidate, error) {
	if filter == nil {
		filter = &device.RequestFilter{AcceptAllDevices: true}
	}
	scanCtx, cancel := context.WithTimeout(ctx, t.opts.ScanTimeout)
	defer cancel()

	// keyed by lower-cased address; Set keeps a key at its first-seen position
	var mu sync.Mutex
	seen := orderedmap.New[string, device.Candidate]()
	target := strings.ToLower(filter.Address)

	t.logger.WithFields(logrus.Fields{
		"timeout":     t.opts.ScanTimeout,
		"address":     filter.Address,
		"name_prefix": filter.NamePrefix,
	}).Info("Scanning for devices...")

	err := t.radio.Scan(scanCtx, true, func(adv Advertisement) {
		addr := strings.ToLower(adv.Address)
		if target == "" && !matches(filter, adv) {
			return
		}

		cand := device.Candidate{
			ID:          adv.Address,
			Name:        adv.LocalName,
			RSSI:        adv.RSSI,
			Connectable: adv.Connectable,
			Services:    adv.Services,
		}

		mu.Lock()
		prev, loaded := seen.Get(addr)
		if loaded {
			// scan responses often carry the name separately from the advertisement
			if cand.Name == "" {
				cand.Name = prev.Name
			}
			if len(cand.Services) == 0 {
				cand.Services = prev.Services
			}
			cand.Connectable = cand.Connectable || prev.Connectable
		}
		seen.Set(addr, cand)
		mu.Unlock()

		if !loaded {
			t.logger.WithFields(logrus.Fields{
				"address": adv.Address,
				"name":    adv.LocalName,
				"rssi":    adv.RSSI,
			}).Debug("Discovered device")
		}
		if target != "" && addr == target {
			cancel()
		}
	})
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	mu.Lock()
	out := make([]device.Candidate, 0, seen.Len())
	for pair := seen.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	mu.Unlock()

	t.logger.WithField("count", len(out)).Info("Scan complete")
	return out, nil
}

func matches(filter *device.RequestFilter, adv Advertisement) bool {
	if filter.NamePrefix != "" && !strings.HasPrefix(adv.LocalName, filter.NamePrefix) {
		return false
	}
	if len(filter.Services) == 0 {
		return true
	}
	for _, want := range filter.Services {
		w := bledb.NormalizeUUID(want)
		for _, got := range adv.Services {
			if bledb.NormalizeUUID(got) == w {
				return true
			}
		}
	}
	return false
}

// RequestDevice scans and selects one device.
func (t *Transport) RequestDevice(ctx context.Context, filter *device.RequestFilter) (device.DeviceHandle, error) {
	if filter == nil {
		filter = &device.RequestFilter{AcceptAllDevices: true}
	}
	candidates, err := t.Scan(ctx, filter)
	if err != nil {
		return nil, err
	}

	var chosen device.Candidate
	switch {
	case filter.Address != "":
		found := false
		for _, c := range candidates {
			if strings.EqualFold(c.ID, filter.Address) {
				chosen, found = c, true
				break
			}
		}
		if !found {
			return nil, &device.SelectionError{Reason: fmt.Sprintf("device %s not found", filter.Address), Err: device.ErrNoDevice}
		}
	case len(candidates) == 0:
		return nil, &device.SelectionError{Reason: "no devices found", Err: device.ErrNoDevice}
	case t.opts.Picker == nil:
		chosen = candidates[0]
	default:
		chosen, err = t.opts.Picker(ctx, candidates)
		if err != nil {
			return nil, &device.SelectionError{Reason: "selection cancelled", Err: err}
		}
	}

	t.logger.WithFields(logrus.Fields{
		"address":     chosen.ID,
		"name":        chosen.Name,
		"connectable": chosen.Connectable,
	}).Info("Device selected")

	return &deviceHandle{
		transport: t,
		candidate: chosen,
		allowed:   allowList(filter),
	}, nil
}

// allowList returns the normalized service allow-list, or nil when every service is reachable.
func allowList(filter *device.RequestFilter) map[string]struct{} {
	services := filter.AllowedServices()
	if len(services) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(services))
	for _, s := range services {
		allowed[bledb.NormalizeUUID(s)] = struct{}{}
	}
	return allowed
}
