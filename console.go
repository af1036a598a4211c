package felutils

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// ListConsoles returns the serial ports a target's debug UART may be attached to.
func ListConsoles() ([]*enumerator.PortDetails, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("console: failed to list ports: %w", err)
	}
	return ports, nil
}

// Console mirrors the target's debug UART into the log while FEL operations run,
// which is the only way to see what uboot did with an injected command.
type Console struct {
	port  serial.Port
	name  string
	log   Logger
	lines lineBuffer

	mutex  sync.Mutex
	closed bool
	done   chan struct{}
}

// OpenConsole opens the UART at name and starts mirroring it.
func OpenConsole(name string, baud int, log Logger) (*Console, error) {
	if log == nil {
		log = nopLogger{}
	}
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud, Parity: serial.NoParity, DataBits: 8, StopBits: serial.OneStopBit})
	if err != nil {
		return nil, fmt.Errorf("console: failed to open '%s': %w", name, err)
	}
	port.SetReadTimeout(time.Millisecond * 200)

	c := &Console{
		port: port,
		name: name,
		log:  log,
		done: make(chan struct{}),
	}
	go c.readThread()
	return c, nil
}

func (c *Console) readThread() {
	defer close(c.done)

	p := make([]byte, 1024)
	for !c.Closed() {
		n, err := c.port.Read(p)
		if err != nil {
			if !c.Closed() {
				c.log.Errorf("console: read from '%s' failed: %v", c.name, err)
			}
			break
		}
		for _, line := range c.lines.feed(p[:n]) {
			c.log.Infof("[uart] %s", line)
		}
	}
	if line := c.lines.flush(); line != "" {
		c.log.Infof("[uart] %s", line)
	}
}

func (c *Console) Close() error {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return nil
	}
	c.closed = true
	c.mutex.Unlock()

	err := c.port.Close()
	<-c.done
	return err
}

func (c *Console) Closed() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.closed
}

// lineBuffer splits a byte stream into lines on \r or \n, dropping empty ones.
type lineBuffer struct {
	buf []byte
}

func (l *lineBuffer) feed(p []byte) []string {
	var lines []string
	for _, b := range p {
		if b == '\n' || b == '\r' {
			if len(l.buf) > 0 {
				lines = append(lines, string(l.buf))
				l.buf = l.buf[:0]
			}
			continue
		}
		l.buf = append(l.buf, b)
	}
	return lines
}

func (l *lineBuffer) flush() string {
	line := string(l.buf)
	l.buf = l.buf[:0]
	return line
}
