package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/simlink/simlink.go/pkg/session"
)

var (
	// OpenCmd opens the serial device and starts the engine.
	OpenCmd = ishell.Cmd{
		Name: "open",
		Help: "[DEVICE [BAUD]]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			device, baud := s.Device, s.Baud
			if len(c.Args) > 0 {
				device = c.Args[0]
			}
			if len(c.Args) > 1 {
				b, err := strconv.Atoi(c.Args[1])
				if err != nil {
					c.Err(fmt.Errorf("bad baud rate %q", c.Args[1]))
					return
				}
				baud = b
			}
			if err := s.Open(device, baud); err != nil {
				c.Err(err)
				return
			}
			c.Printf("opened %s @ %d\n", device, baud)
		},
	}

	// CloseCmd stops the engine and closes the port.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Help: "",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Close(); err != nil {
				c.Err(err)
			}
		},
	}

	// StateCmd prints connection state and the latest telemetry.
	StateCmd = ishell.Cmd{
		Name:    "state",
		Aliases: []string{"st"},
		Help:    "",
		Func: MustBeOpen(func(c *ishell.Context, sess *session.Session) {
			c.Print(formatState(sess.Snapshot()))
		}),
	}

	// InfoCmd prints the device info block.
	InfoCmd = ishell.Cmd{
		Name: "info",
		Help: "",
		Func: MustBeOpen(func(c *ishell.Context, sess *session.Session) {
			snap := sess.Snapshot()
			if !snap.HasDevice {
				c.Println("no device yet")
				return
			}
			d := snap.Device
			c.Printf("name:     %s\n", d.Name)
			c.Printf("serial:   %s\n", d.Serial)
			c.Printf("hardware: %d\n", d.HardwareVersion)
			c.Printf("software: %d\n", d.SoftwareVersion)
			c.Printf("params:   %d (protocol %d)\n", d.ParamCount, d.ProtocolVersion)
		}),
	}

	// ParamsCmd lists the decoded parameter catalogue.
	ParamsCmd = ishell.Cmd{
		Name:    "params",
		Aliases: []string{"ls"},
		Help:    "",
		Func: MustBeOpen(func(c *ishell.Context, sess *session.Session) {
			snap := sess.Snapshot()
			if len(snap.Parameters) == 0 {
				c.Println("no parameters yet")
				return
			}
			for _, p := range snap.Parameters {
				hidden := " "
				if p.Hidden {
					hidden = "*"
				}
				c.Printf("%3d%s %-24s %s\n", p.Index, hidden, p.Name, formatValue(p))
			}
		}),
	}

	// ParamCmd prints one parameter in detail.
	ParamCmd = ishell.Cmd{
		Name: "param",
		Help: "INDEX [CHUNK] (re-request with CHUNK)",
		Func: MustBeOpen(func(c *ishell.Context, sess *session.Session) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("usage: param INDEX [CHUNK]"))
				return
			}
			index, err := strconv.ParseUint(c.Args[0], 10, 8)
			if err != nil {
				c.Err(fmt.Errorf("bad index %q", c.Args[0]))
				return
			}
			if len(c.Args) > 1 {
				chunk, err := strconv.ParseUint(c.Args[1], 10, 8)
				if err != nil {
					c.Err(fmt.Errorf("bad chunk %q", c.Args[1]))
					return
				}
				err = ShellFrom(c).Post(func(sess *session.Session) {
					sess.RequestParameter(uint8(index), uint8(chunk))
				})
				if err != nil {
					c.Err(err)
				}
				return
			}
			p, ok := sess.Snapshot().Parameter(uint8(index))
			if !ok {
				c.Printf("parameter %d not loaded\n", index)
				return
			}
			c.Printf("index:  %d\n", p.Index)
			c.Printf("folder: %d\n", p.Folder)
			c.Printf("type:   %d\n", p.Type)
			c.Printf("hidden: %v\n", p.Hidden)
			c.Printf("name:   %s\n", p.Name)
			c.Printf("value:  %s\n", formatValue(p))
		}),
	}

	// SetCmd sets a control channel value.
	SetCmd = ishell.Cmd{
		Name: "set",
		Help: "steering|throttle|brake VALUE (172..1811)",
		Func: MustBeOpen(func(c *ishell.Context, sess *session.Session) {
			if len(c.Args) != 2 {
				c.Err(fmt.Errorf("usage: set steering|throttle|brake VALUE"))
				return
			}
			v, err := strconv.ParseUint(c.Args[1], 10, 16)
			if err != nil {
				c.Err(fmt.Errorf("bad value %q", c.Args[1]))
				return
			}
			value := uint16(v)
			var fn func(*session.Session)
			switch c.Args[0] {
			case "steering":
				fn = func(sess *session.Session) { sess.SetSteering(value) }
			case "throttle":
				fn = func(sess *session.Session) { sess.SetThrottle(value) }
			case "brake":
				fn = func(sess *session.Session) { sess.SetBrake(value) }
			default:
				c.Err(fmt.Errorf("unknown channel %q", c.Args[0]))
				return
			}
			if err := ShellFrom(c).Post(fn); err != nil {
				c.Err(err)
			}
		}),
	}

	// RefreshCmd re-enumerates the parameter catalogue.
	RefreshCmd = ishell.Cmd{
		Name: "refresh",
		Help: "",
		Func: MustBeOpen(func(c *ishell.Context, sess *session.Session) {
			err := ShellFrom(c).Post(func(sess *session.Session) {
				sess.RefreshParameters()
			})
			if err != nil {
				c.Err(err)
			}
		}),
	}

	// WatchCmd prints the state periodically for a few seconds.
	WatchCmd = ishell.Cmd{
		Name: "watch",
		Help: "[SECONDS]",
		Func: MustBeOpen(func(c *ishell.Context, sess *session.Session) {
			dur := 5 * time.Second
			if len(c.Args) > 0 {
				secs, err := strconv.Atoi(c.Args[0])
				if err != nil || secs <= 0 {
					c.Err(fmt.Errorf("bad duration %q", c.Args[0]))
					return
				}
				dur = time.Duration(secs) * time.Second
			}
			deadline := time.Now().Add(dur)
			for time.Now().Before(deadline) {
				snap := sess.Snapshot()
				c.Printf("tx %-12s rx %-12s lq %3d%% rssi %4ddBm batt %.1fV\n",
					snap.Tx, snap.Rx, snap.Link.UplinkLQ,
					snap.Link.UplinkRSSI1, snap.Battery.Voltage)
				time.Sleep(500 * time.Millisecond)
			}
		}),
	}
)
