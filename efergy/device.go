package efergy

import (
	"fmt"
	"sort"
	"sync"
)

// A Device describes one transmitter variant's framing and conversion
// parameters. The pulse-width thresholds are starting points, tunable from
// configuration where a particular receiver setup demands it.
type Device struct {
	Name string

	// FrameBytes is the frame length including the checksum byte.
	FrameBytes int

	// MinLowBit and MinHighBit are the pulse-width thresholds separating
	// noise, logic 0 and logic 1.
	MinLowBit  int
	MinHighBit int

	// Voltage is the reference line voltage multiplied into readings. The
	// Elite 3.0 TPM reports power directly and uses 1.
	Voltage float64
}

var (
	deviceMutex sync.Mutex
	devices     = make(map[string]Device)
)

// Register makes a device variant available to NewDevice.
func Register(dev Device) {
	deviceMutex.Lock()
	defer deviceMutex.Unlock()

	if dev.Name == "" {
		panic("efergy: device name is empty")
	}
	if _, dup := devices[dev.Name]; dup {
		panic(fmt.Sprintf("efergy: device already registered (%s)", dev.Name))
	}
	devices[dev.Name] = dev
}

// NewDevice looks up a registered device variant by name.
func NewDevice(name string) (Device, error) {
	deviceMutex.Lock()
	defer deviceMutex.Unlock()

	if dev, exists := devices[name]; exists {
		return dev, nil
	}
	return Device{}, fmt.Errorf("invalid device: %q", name)
}

// DeviceNames lists registered variants for usage text.
func DeviceNames() (names []string) {
	deviceMutex.Lock()
	defer deviceMutex.Unlock()

	for name := range devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

func init() {
	// E2 Classic, the 8-byte protocol.
	Register(Device{
		Name:       "e2",
		FrameBytes: 8,
		MinLowBit:  3,
		MinHighBit: 8,
		Voltage:    240,
	})

	// Elite 3.0 TPM, a 9-byte variant with slightly wider one-pulses.
	Register(Device{
		Name:       "elite",
		FrameBytes: 9,
		MinLowBit:  3,
		MinHighBit: 9,
		Voltage:    1,
	})
}
