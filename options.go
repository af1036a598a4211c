package felutils

// Logger is the logging surface the FEL engine writes to.
type Logger interface {
	Infof(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Tracef(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Tracef(string, ...interface{}) {}
func (nopLogger) Errorf(string, ...interface{}) {}

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the logger, the default discards everything.
func WithLogger(log Logger) Option {
	return func(d *Device) {
		if log != nil {
			d.log = log
		}
	}
}

// WithConstants replaces DefaultConstants for a device with a different memory map.
func WithConstants(c *Constants) Option {
	return func(d *Device) {
		if c != nil {
			d.consts = c
		}
	}
}

// WithDiscovery sets where the device is looked up again after it reboots.
func WithDiscovery(discovery Discovery) Option {
	return func(d *Device) {
		d.discovery = discovery
	}
}

// WithStrictTags numbers every envelope and rejects responses carrying another tag.
func WithStrictTags() Option {
	return func(d *Device) {
		d.strictTags = true
	}
}
