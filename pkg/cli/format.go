package cli

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/simlink/simlink.go/pkg/crsf"
	"github.com/simlink/simlink.go/pkg/session"
)

// formatState renders a snapshot for the state command.
func formatState(snap session.Snapshot) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "tx:      %s\n", snap.Tx)
	fmt.Fprintf(&w, "rx:      %s\n", snap.Rx)
	if snap.HasDevice {
		fmt.Fprintf(&w, "device:  %s (%d params)\n", snap.Device.Name, snap.Device.ParamCount)
	}
	fmt.Fprintf(&w, "link:    lq %d%% rssi %d/%d dBm snr %d dB\n",
		snap.Link.UplinkLQ, snap.Link.UplinkRSSI1, snap.Link.UplinkRSSI2, snap.Link.UplinkSNR)
	fmt.Fprintf(&w, "battery: %.1fV %.1fA %dmAh %d%%\n",
		snap.Battery.Voltage, snap.Battery.Current, snap.Battery.Capacity, snap.Battery.Remaining)
	if snap.RadioSync.IntervalUS > 0 {
		fmt.Fprintf(&w, "sync:    %.1fus phase %d\n", snap.RadioSync.IntervalUS, snap.RadioSync.Phase)
	}
	return w.String()
}

// formatValue renders a parameter value for listings.
func formatValue(p crsf.Parameter) string {
	switch v := p.Value.(type) {
	case crsf.NumericValue:
		s := fmt.Sprintf("%d", v.Value)
		if v.Unit != "" {
			s += " " + v.Unit
		}
		return fmt.Sprintf("%s [%d..%d]", s, v.Min, v.Max)
	case crsf.FloatValue:
		s := fmt.Sprintf("%g", v.Display())
		if v.Unit != "" {
			s += " " + v.Unit
		}
		return fmt.Sprintf("%s [%g..%g]", s, v.Scaled(v.Min), v.Scaled(v.Max))
	case crsf.TextSelectionValue:
		sel := v.Selected()
		if sel == "" {
			sel = fmt.Sprintf("#%d", v.Value)
		}
		if len(v.Options) == 0 {
			return sel
		}
		return fmt.Sprintf("%s (%s)", sel, strings.Join(v.Options, "|"))
	case crsf.StringValue:
		return fmt.Sprintf("%q", v.Value)
	case crsf.FolderValue:
		return fmt.Sprintf("folder (%d entries)", len(v.Children))
	case crsf.InfoValue:
		return v.Text
	case crsf.CommandValue:
		if v.Text != "" {
			return fmt.Sprintf("command: %s", v.Text)
		}
		return "command"
	case crsf.RawValue:
		return fmt.Sprintf("undecoded %d bytes", len(v.Data))
	case nil:
		return "-"
	}
	return fmt.Sprintf("%v", p.Value)
}
