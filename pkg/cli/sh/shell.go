// Package sh provides the interactive shell sending payloads to a
// deserializer over a serial port.
package sh

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/abiosoft/readline"
	"github.com/golang/glog"

	"github.com/robotalks/uart2json/pkg/config"
	"github.com/robotalks/uart2json/pkg/payload"
	"github.com/robotalks/uart2json/pkg/uart"
)

// Shell sends typed lines as payloads. Lines are read raw with readline
// in interactive mode, the ishell commands serve -e.
type Shell struct {
	Interactive bool

	Shell *ishell.Shell
	Port  io.Writer
	// Now provides the payload timestamps.
	Now func() time.Time
}

const shellKey = "$shell"

var (
	// flags

	evalOnly bool
	portName string
	baudRate int

	// commands
	commands = []*ishell.Cmd{
		&SendCmd,
	}
)

func init() {
	defaults := config.Default()
	portName, baudRate = defaults.Serial.Port, defaults.Serial.BaudRate
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.StringVar(&portName, "port", portName, "Serial device")
	flag.IntVar(&baudRate, "baud", baudRate, "Baud rate")
}

const prompt = "Enter a message or hit Ctrl+C to finish program: "

// LineReader reads lines as typed.
type LineReader interface {
	Readline() (string, error)
}

// New creates a new shell writing frames to port.
func New(port io.Writer) *Shell {
	return &Shell{
		Interactive: !evalOnly,
		Port:        port,
		Now:         time.Now,
	}
}

func (s *Shell) commandShell() *ishell.Shell {
	sh := ishell.New()
	sh.Set(shellKey, s)
	for _, cmd := range commands {
		sh.AddCmd(cmd)
	}
	// arguments which aren't commands are sent as one message
	sh.NotFound(func(c *ishell.Context) {
		sendArgs(c, c.Args)
	})
	return sh
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Frame builds the frame carrying text with the current UTC time.
func (s *Shell) Frame(text string) (payload.Payload, []byte, error) {
	if len(text) > payload.MaxDataLen {
		return payload.Payload{}, nil, fmt.Errorf("message too long, please limit to less than %d characters", payload.MaxDataLen+1)
	}
	p := payload.Payload{Timestamp: uint32(s.Now().UTC().Unix()), Data: text}
	frame, err := payload.Marshal(p)
	return p, frame, err
}

// Send writes a payload with text to the port.
func (s *Shell) Send(text string) (payload.Payload, error) {
	p, frame, err := s.Frame(text)
	if err != nil {
		return p, err
	}
	if _, err := s.Port.Write(frame); err != nil {
		return p, fmt.Errorf("send message: %w", err)
	}
	glog.V(2).Infof("sent %d bytes", len(frame))
	return p, nil
}

func sendArgs(c *ishell.Context, args []string) {
	p, err := ShellFrom(c).Send(strings.Join(args, " "))
	if err != nil {
		c.Err(err)
		return
	}
	c.Printf("Sending message: %d, %s\n", p.Timestamp, p.Data)
}

// Interact sends every line from r exactly as typed until r is
// interrupted or exhausted.
func (s *Shell) Interact(r LineReader, out io.Writer) error {
	fmt.Fprintln(out, "=== UART Message Sender ===")
	for {
		line, err := r.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			fmt.Fprintln(out, "Program stopped by user")
			return nil
		}
		if err != nil {
			return err
		}
		p, err := s.Send(line)
		if err != nil {
			fmt.Fprintf(out, "Error sending message: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "Sending message: %d, %s\n", p.Timestamp, p.Data)
	}
}

// Run runs the commands in args, or reads lines interactively.
func (s *Shell) Run(args ...string) error {
	if len(args) > 0 {
		s.Shell = s.commandShell()
		return s.Shell.Process(args...)
	}
	if !s.Interactive {
		return fmt.Errorf("command expected")
	}
	rl, err := readline.NewEx(&readline.Config{Prompt: prompt})
	if err != nil {
		return err
	}
	defer rl.Close()
	return s.Interact(rl, rl.Stdout())
}

var (
	// SendCmd sends the arguments as one message.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "TEXT...",
		Func: func(c *ishell.Context) {
			sendArgs(c, c.Args)
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	defer glog.Flush()

	port, err := uart.Configure(uart.Settings{
		Name:     portName,
		BaudRate: baudRate,
		TxPin:    uart.PinNoChange,
		RxPin:    uart.PinNoChange,
	})
	if err != nil {
		glog.Exit(err)
	}
	defer port.Close()
	if err := New(port).Run(flag.Args()...); err != nil {
		glog.Error(err)
	}
}
