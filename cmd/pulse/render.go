package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/srg/pulse/internal/bledb"
	"github.com/srg/pulse/internal/device"
	"github.com/srg/pulse/internal/discovery"
	"github.com/srg/pulse/internal/notify"
)

// renderer writes command output. Colour is off unless enabled explicitly.
type renderer struct {
	w     io.Writer
	bpm   *color.Color
	warn  *color.Color
	faint *color.Color
}

func newRenderer(w io.Writer, colorize bool) *renderer {
	r := &renderer{
		w:     w,
		bpm:   color.New(color.FgRed, color.Bold),
		warn:  color.New(color.FgYellow),
		faint: color.New(color.Faint),
	}
	for _, c := range []*color.Color{r.bpm, r.warn, r.faint} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

func (r *renderer) candidates(list []device.Candidate) error {
	if len(list) == 0 {
		fmt.Fprintln(r.w, "No devices discovered")
		return nil
	}

	w := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tRSSI\tCONNECTABLE\tSERVICES")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, c := range list {
		name := c.DisplayName()
		if len(name) > 20 {
			name = name[:17] + "..."
		}
		services := make([]string, len(c.Services))
		for i, s := range c.Services {
			services[i] = bledb.NormalizeUUID(s)
		}
		connectable := "no"
		if c.Connectable {
			connectable = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%d dBm\t%s\t%s\n", name, c.ID, c.RSSI, connectable, strings.Join(services, ","))
	}
	return w.Flush()
}

// snapshot prints the attribute tree with registry names.
func (r *renderer) snapshot(snap *discovery.DeviceSnapshot) {
	services, chars, descs := snap.Counts()
	fmt.Fprintf(r.w, "Device: %s (%s)\n", snap.Name, snap.ID)
	fmt.Fprintf(r.w, "Services: %d, characteristics: %d, descriptors: %d\n", services, chars, descs)

	for i, svc := range snap.Services {
		fmt.Fprintf(r.w, "\n[%d] Service %s%s\n", i+1, bledb.NormalizeUUID(svc.UUID), named(svc.Name))
		for j, c := range svc.Characteristics {
			fmt.Fprintf(r.w, "  [%d.%d] Characteristic %s%s [%s]\n",
				i+1, j+1, c.ShortID(), named(c.Name), propertyList(c.Properties))
			if c.Description != "" {
				fmt.Fprintf(r.w, "        %s\n", r.faint.Sprint(c.Description))
			}
			for _, d := range c.Descriptors {
				fmt.Fprintf(r.w, "        Descriptor %s%s: %q\n", bledb.NormalizeUUID(d.UUID), named(d.Name), d.Value)
			}
		}
	}
}

// summary prints one line describing the snapshot.
func (r *renderer) summary(snap *discovery.DeviceSnapshot) {
	services, chars, descs := snap.Counts()
	fmt.Fprintf(r.w, "Connected to %s (%s): %d services, %d characteristics, %d descriptors\n",
		snap.Name, snap.ID, services, chars, descs)
}

// measurement prints one vitals line.
func (r *renderer) measurement(ev notify.Event) {
	m := ev.Measurement
	line := r.bpm.Sprintf("%3d bpm", m.BeatsPerMinute)
	if m.SensorContactSupported {
		if m.SensorContactDetected {
			line += "  contact"
		} else {
			line += "  " + r.warn.Sprint("no contact")
		}
	}
	if m.EnergyExpended != nil {
		line += fmt.Sprintf("  %d kJ", *m.EnergyExpended)
	}
	if len(m.RRIntervals) > 0 {
		parts := make([]string, len(m.RRIntervals))
		for i, rr := range m.RRIntervals {
			parts[i] = fmt.Sprintf("%.0f", rr*1000)
		}
		line += "  rr " + strings.Join(parts, "/") + " ms"
	}
	fmt.Fprintf(r.w, "%s  %s\n", r.faint.Sprint(ev.At.Format("15:04:05.000")), line)
}

// fault prints a non-terminal fault inline.
func (r *renderer) fault(msg string) {
	fmt.Fprintln(r.w, r.warn.Sprint("! "+msg))
}

func (r *renderer) entries(kind bledb.Kind, list []bledb.Entry) error {
	w := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tNAME\tDESCRIPTION\n", strings.ToUpper(string(kind)))
	for _, e := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, e.Name, e.Description)
	}
	return w.Flush()
}

func named(name string) string {
	if name == "" {
		return ""
	}
	return " (" + name + ")"
}

func propertyList(p discovery.PropertySet) string {
	var names []string
	if p.Read {
		names = append(names, "read")
	}
	if p.Write {
		names = append(names, "write")
	}
	if p.Notify {
		names = append(names, "notify")
	}
	if p.Indicate {
		names = append(names, "indicate")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// Snapshot output formats.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
	formatCBOR = "cbor"
)

var snapshotFormats = []string{formatText, formatJSON, formatYAML, formatCBOR}

// encodeSnapshot writes snap in a machine-readable format.
func encodeSnapshot(w io.Writer, snap *discovery.DeviceSnapshot, format string) error {
	switch format {
	case formatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(snap)
	case formatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(snap); err != nil {
			return err
		}
		return encoder.Close()
	case formatCBOR:
		em, err := cbor.CanonicalEncOptions().EncMode()
		if err != nil {
			return err
		}
		data, err := em.Marshal(snap)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("invalid format '%s': must be one of %v", format, snapshotFormats)
	}
}
