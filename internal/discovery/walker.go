// Package discovery walks the GATT attribute tree of a connected device and
// produces an order-preserving DeviceSnapshot.
//
// Only the top-level service enumeration is fatal. A failed characteristic
// or descriptor enumeration empties that sequence; a failed descriptor read
// drops that descriptor. Each such failure is passed to the fault reporter
// as a *device.PartialDiscoveryFault.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/iter"

	"github.com/srg/pulse/internal/bledb"
	"github.com/srg/pulse/internal/device"
	"github.com/srg/pulse/internal/fault"
)

// WalkOptions tune a walk.
type WalkOptions struct {
	// MaxConcurrency bounds in-flight transport calls per tree level. Zero or less means 1.
	MaxConcurrency int
	// DescriptorReadTimeout bounds each descriptor read. Zero means no per-read deadline.
	DescriptorReadTimeout time.Duration
	// SkipDescriptorValues lists descriptors without reading their values.
	SkipDescriptorValues bool
}

// Identity names the device being walked.
type Identity struct {
	ID   string
	Name string
}

// Walker discovers attribute trees.
type Walker struct {
	logger   *logrus.Logger
	opts     WalkOptions
	reporter fault.Reporter
	registry *bledb.Registry
}

// NewWalker creates a walker. A nil reporter discards partial faults after logging them.
func NewWalker(logger *logrus.Logger, opts WalkOptions, reporter fault.Reporter) *Walker {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	return &Walker{logger: logger, opts: opts, reporter: reporter, registry: bledb.Default()}
}

func (w *Walker) partial(f *device.PartialDiscoveryFault) {
	w.logger.WithFields(logrus.Fields{
		"resource": f.Resource,
		"op":       f.Op,
		"path":     strings.Join(f.UUIDs, "/"),
		"error":    f.Err,
	}).Warn("Partial discovery failure")
	if w.reporter != nil {
		w.reporter.Report(f)
	}
}

// Discover walks server and returns the snapshot. It fails with *device.DiscoveryError
// only when the primary services cannot be listed, or with ctx.Err() when cancelled.
func (w *Walker) Discover(ctx context.Context, id Identity, server device.Server) (*DeviceSnapshot, error) {
	start := time.Now()
	services, err := server.PrimaryServices(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		w.logger.WithFields(logrus.Fields{
			"device_id": id.ID,
			"error":     err,
		}).Error("Service discovery failed")
		return nil, &device.DiscoveryError{DeviceID: id.ID, Err: err}
	}

	mapper := iter.Mapper[device.Service, ServiceInfo]{MaxGoroutines: w.opts.MaxConcurrency}
	infos := mapper.Map(services, func(svc *device.Service) ServiceInfo {
		return w.walkService(ctx, *svc)
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = DefaultDeviceName
	}
	snap := &DeviceSnapshot{Name: name, ID: id.ID, Services: infos}

	s, c, d := snap.Counts()
	w.logger.WithFields(logrus.Fields{
		"device_id":       id.ID,
		"services":        s,
		"characteristics": c,
		"descriptors":     d,
		"duration":        time.Since(start),
	}).Info("Discovery complete")
	return snap, nil
}

func (w *Walker) walkService(ctx context.Context, svc device.Service) ServiceInfo {
	uuid := svc.UUID()
	info := ServiceInfo{
		UUID:            uuid,
		Characteristics: []CharacteristicInfo{},
	}
	if meta, ok := w.registry.Lookup(bledb.KindService, uuid); ok {
		info.Name = meta.Name
	}

	chars, err := svc.Characteristics(ctx)
	if err != nil {
		w.partial(&device.PartialDiscoveryFault{Resource: "characteristic", Op: "enumerate", UUIDs: []string{uuid}, Err: err})
		return info
	}
	w.logger.WithFields(logrus.Fields{
		"service_uuid": uuid,
		"count":        len(chars),
	}).Debug("Discovered characteristics")

	mapper := iter.Mapper[device.Characteristic, CharacteristicInfo]{MaxGoroutines: w.opts.MaxConcurrency}
	info.Characteristics = mapper.Map(chars, func(c *device.Characteristic) CharacteristicInfo {
		return w.walkCharacteristic(ctx, uuid, *c)
	})
	return info
}

func (w *Walker) walkCharacteristic(ctx context.Context, serviceUUID string, c device.Characteristic) CharacteristicInfo {
	uuid := c.UUID()
	meta := w.registry.Resolve(bledb.ShortID(uuid))
	info := CharacteristicInfo{
		UUID:        uuid,
		Name:        meta.Name,
		Description: meta.Description,
		Properties:  NewPropertySet(c.Properties()),
		Descriptors: []DescriptorInfo{},
	}

	descs, err := c.Descriptors(ctx)
	if err != nil {
		w.partial(&device.PartialDiscoveryFault{Resource: "descriptor", Op: "enumerate", UUIDs: []string{serviceUUID, uuid}, Err: err})
		return info
	}

	type readResult struct {
		info DescriptorInfo
		ok   bool
	}
	mapper := iter.Mapper[device.Descriptor, readResult]{MaxGoroutines: w.opts.MaxConcurrency}
	results := mapper.Map(descs, func(d *device.Descriptor) readResult {
		di, err := w.readDescriptor(ctx, *d)
		if err != nil {
			w.partial(&device.PartialDiscoveryFault{Resource: "descriptor", Op: "read", UUIDs: []string{serviceUUID, uuid, (*d).UUID()}, Err: err})
			return readResult{}
		}
		return readResult{info: di, ok: true}
	})

	for _, r := range results {
		if r.ok {
			info.Descriptors = append(info.Descriptors, r.info)
		}
	}
	return info
}

func (w *Walker) readDescriptor(ctx context.Context, d device.Descriptor) (DescriptorInfo, error) {
	uuid := d.UUID()
	info := DescriptorInfo{UUID: uuid}
	if meta, ok := w.registry.Lookup(bledb.KindDescriptor, uuid); ok {
		info.Name = meta.Name
	}
	if w.opts.SkipDescriptorValues {
		return info, nil
	}

	readCtx := ctx
	if w.opts.DescriptorReadTimeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, w.opts.DescriptorReadTimeout)
		defer cancel()
	}

	value, err := d.ReadValue(readCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return info, fmt.Errorf("%w: descriptor read exceeded %s", device.ErrTimeout, w.opts.DescriptorReadTimeout)
		}
		return info, err
	}
	info.Value = DecodeText(value)
	return info, nil
}

// DecodeText decodes bytes as UTF-8, replacing invalid sequences with U+FFFD.
func DecodeText(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
