// Package cli provides the ishell backed operator console for a
// transmitter module.
package cli

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"time"

	"github.com/abiosoft/ishell"

	fx "github.com/simlink/simlink.go/pkg/framework"
	"github.com/simlink/simlink.go/pkg/session"
)

const (
	shellKey     = "$shell"
	closedPrompt = "[none] > "
)

var (
	// flags

	evalOnly bool

	// commands
	commands = []*ishell.Cmd{
		&OpenCmd,
		&CloseCmd,
		&StateCmd,
		&InfoCmd,
		&ParamsCmd,
		&ParamCmd,
		&SetCmd,
		&RefreshCmd,
		&WatchCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluate arguments only, no interactive shell.")
}

// Shell wraps ishell around a live device session. Session methods
// other than Snapshot run on the engine loop via posted closures, so
// the engine stays single threaded.
type Shell struct {
	Interactive bool

	Shell *ishell.Shell

	// Device and Baud seed the open command.
	Device string
	Baud   int

	lock   sync.Mutex
	opened string
	sess   *session.Session
	port   *session.SerialPort
	cancel context.CancelFunc
	doneCh chan error
	cmdCh  chan func(*session.Session)
}

// New creates a new shell.
func New(device string, baud int) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		Shell:       ishell.New(),
		Device:      device,
		Baud:        baud,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Run starts the shell, either interactive or evaluating args.
func (s *Shell) Run(args []string) error {
	defer s.Close()
	if s.Interactive {
		s.Shell.Run()
		return nil
	}
	return s.Shell.Process(args...)
}

// Open opens the serial device and starts the engine loop.
func (s *Shell) Open(device string, baud int) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.sess != nil {
		return fmt.Errorf("already open: %s", s.opened)
	}
	port, err := session.OpenSerial(device, baud)
	if err != nil {
		return err
	}
	sess := session.New(port)

	ctx, cancel := context.WithCancel(context.Background())
	cmdCh := make(chan func(*session.Session), 16)
	doneCh := make(chan error, 1)
	loop := fx.NewLoop().Add(&engineTicker{sess: sess, cmds: cmdCh})
	go func() {
		doneCh <- loop.Run(ctx)
	}()

	s.sess, s.port, s.opened = sess, port, device
	s.cancel, s.doneCh, s.cmdCh = cancel, doneCh, cmdCh
	s.Shell.SetPrompt(fmt.Sprintf("[%s] > ", device))
	return nil
}

// Close stops the engine loop and closes the port.
func (s *Shell) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.sess == nil {
		return nil
	}
	s.cancel()
	err := <-s.doneCh
	s.port.Close()
	s.sess, s.port, s.opened = nil, nil, ""
	s.cancel, s.doneCh, s.cmdCh = nil, nil, nil
	s.Shell.SetPrompt(closedPrompt)
	if err == context.Canceled {
		err = nil
	}
	return err
}

// Session returns the live session, or nil when closed.
func (s *Shell) Session() *session.Session {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.sess
}

// Post runs fn on the engine loop goroutine.
func (s *Shell) Post(fn func(*session.Session)) error {
	s.lock.Lock()
	ch := s.cmdCh
	s.lock.Unlock()
	if ch == nil {
		return fmt.Errorf("not open")
	}
	select {
	case ch <- fn:
		return nil
	case <-time.After(time.Second):
		return fmt.Errorf("engine loop not responding")
	}
}

// MustBeOpen wraps a command func that requires an open session.
func MustBeOpen(fn func(c *ishell.Context, sess *session.Session)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		sess := ShellFrom(c).Session()
		if sess == nil {
			c.Err(fmt.Errorf("not open"))
			return
		}
		fn(c, sess)
	}
}

// engineTicker drives the session and applies posted commands between
// ticks.
type engineTicker struct {
	sess *session.Session
	cmds chan func(*session.Session)
}

// Tick implements framework.Ticker.
func (e *engineTicker) Tick(now time.Time) error {
	for {
		select {
		case fn := <-e.cmds:
			fn(e.sess)
			continue
		default:
		}
		break
	}
	if err := e.sess.Tick(now); err != nil {
		return err
	}
	return e.sess.HandleRx()
}
