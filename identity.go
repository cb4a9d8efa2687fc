package boardlink

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"
)

// DeviceDescriptor identifies the board behind an open connection
type DeviceDescriptor struct {
	VendorID    uint16
	ProductID   uint16
	DisplayName string
	Path        string
}

// usbKey packs a vendor/product pair; product 0 is the vendor-wide entry
func usbKey(vid, pid uint16) uint32 {
	return uint32(vid)<<16 | uint32(pid)
}

var vendorNames = map[uint16]string{
	0x2341: "Arduino",
	0x2a03: "Arduino",
	0x1a86: "QinHeng",
	0x10c4: "Silicon Labs",
	0x0403: "FTDI",
	0x303a: "Espressif",
	0x2e8a: "Raspberry Pi",
	0x16c0: "Teensy",
	0x239a: "Adafruit",
}

var boardNames = map[uint32]string{
	usbKey(0x2341, 0x0043): "Arduino Uno",
	usbKey(0x2341, 0x0001): "Arduino Uno",
	usbKey(0x2341, 0x0010): "Arduino Mega 2560",
	usbKey(0x2341, 0x0042): "Arduino Mega 2560",
	usbKey(0x2341, 0x8036): "Arduino Leonardo",
	usbKey(0x2341, 0x8037): "Arduino Micro",
	usbKey(0x2341, 0x804d): "Arduino Zero",
	usbKey(0x2a03, 0x0043): "Arduino Uno",
	usbKey(0x1a86, 0x7523): "CH340 Serial Adapter",
	usbKey(0x1a86, 0x55d4): "CH9102 Serial Adapter",
	usbKey(0x10c4, 0xea60): "CP210x UART Bridge",
	usbKey(0x0403, 0x6001): "FTDI FT232R",
	usbKey(0x0403, 0x6015): "FTDI FT231X",
	usbKey(0x303a, 0x1001): "ESP32-S3",
	usbKey(0x303a, 0x0002): "ESP32-S2",
	usbKey(0x2e8a, 0x0005): "Raspberry Pi Pico",
	usbKey(0x2e8a, 0x000a): "Raspberry Pi Pico",
	usbKey(0x16c0, 0x0483): "Teensy",
}

// Resolver names boards from their USB IDs. Entries added at runtime
// override the built-in table. The zero value is not usable; use NewResolver.
type Resolver struct {
	mu      sync.RWMutex
	boards  map[uint32]string
	vendors map[uint16]string
}

// NewResolver returns a resolver seeded with the built-in board table
func NewResolver() *Resolver {
	r := &Resolver{
		boards:  make(map[uint32]string, len(boardNames)),
		vendors: make(map[uint16]string, len(vendorNames)),
	}
	for k, v := range boardNames {
		r.boards[k] = v
	}
	for k, v := range vendorNames {
		r.vendors[k] = v
	}
	return r
}

var defaultResolver = NewResolver()

// ResolveDeviceName names a board using the built-in table
func ResolveDeviceName(vid, pid uint16) string {
	return defaultResolver.Resolve(vid, pid)
}

// Resolve returns a display name for vid:pid. It never fails.
func (r *Resolver) Resolve(vid, pid uint16) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name, ok := r.boards[usbKey(vid, pid)]; ok {
		return name
	}
	if vendor, ok := r.vendors[vid]; ok {
		return fmt.Sprintf("%s device (VID 0x%04X, PID 0x%04X)", vendor, vid, pid)
	}
	return fmt.Sprintf("Unknown device (VID 0x%04X, PID 0x%04X)", vid, pid)
}

// Add registers a board name for vid:pid
func (r *Resolver) Add(vid, pid uint16, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boards[usbKey(vid, pid)] = name
}

// AddVendor registers a vendor name used for products without an entry
func (r *Resolver) AddVendor(vid uint16, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vendors[vid] = name
}

// Descriptor builds the descriptor for a port that was just opened
func (r *Resolver) Descriptor(info PortInfo) DeviceDescriptor {
	name := info.Description
	if info.IsUSB || info.VendorID != 0 {
		name = r.Resolve(info.VendorID, info.ProductID)
	}
	if name == "" {
		name = info.Name
	}
	return DeviceDescriptor{
		VendorID:    info.VendorID,
		ProductID:   info.ProductID,
		DisplayName: name,
		Path:        info.Path,
	}
}

// catalogFile is the on-disk board catalog:
//
//	vendors:
//	  "0x1209": pid.codes
//	boards:
//	  - vid: "0x1209"
//	    pid: "0x2201"
//	    name: Ferris Sweep
type catalogFile struct {
	Vendors map[string]string `yaml:"vendors"`
	Boards  []struct {
		VID  string `yaml:"vid"`
		PID  string `yaml:"pid"`
		Name string `yaml:"name"`
	} `yaml:"boards"`
}

// LoadCatalog reads a YAML board catalog into the resolver
func (r *Resolver) LoadCatalog(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read board catalog: %w", err)
	}
	return r.ParseCatalog(data)
}

// ParseCatalog adds the entries of a YAML board catalog
func (r *Resolver) ParseCatalog(data []byte) error {
	var cat catalogFile
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return fmt.Errorf("%w: board catalog: %v", ErrInvalidConfig, err)
	}

	for raw, name := range cat.Vendors {
		vid, err := parseCatalogID(raw)
		if err != nil {
			return fmt.Errorf("%w: vendor %q: %v", ErrInvalidConfig, raw, err)
		}
		r.AddVendor(vid, name)
	}
	for i, b := range cat.Boards {
		vid, err := parseCatalogID(b.VID)
		if err != nil {
			return fmt.Errorf("%w: board %d vid: %v", ErrInvalidConfig, i, err)
		}
		pid, err := parseCatalogID(b.PID)
		if err != nil {
			return fmt.Errorf("%w: board %d pid: %v", ErrInvalidConfig, i, err)
		}
		if b.Name == "" {
			return fmt.Errorf("%w: board %d has no name", ErrInvalidConfig, i)
		}
		r.Add(vid, pid, b.Name)
	}
	return nil
}

// parseCatalogID accepts "0x2341", "2341" (hex) as written by lsusb
func parseCatalogID(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
