package hid

import "sync"

// Registry tracks parsed devices by id, replacing the source's module-level
// device table with an explicitly-constructed object per design note §9.
// It holds no event queue: events go to the Sink passed to each ParseReport.
type Registry struct {
	mu      sync.Mutex
	devices map[int]*Device
}

// NewRegistry returns an empty device registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[int]*Device)}
}

// AddDevice parses descriptor and registers the result under id, replacing
// any previous device at that id. A parse failure leaves id unregistered.
func (r *Registry) AddDevice(id int, descriptor []byte) (*Device, error) {
	dev, err := DeviceFromDescriptor(descriptor, id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.devices[id] = dev
	r.mu.Unlock()
	return dev, nil
}

// RemoveDevice drops a device from the registry, e.g. on USB disconnect.
func (r *Registry) RemoveDevice(id int) {
	r.mu.Lock()
	delete(r.devices, id)
	r.mu.Unlock()
}

// Device returns the registered device for id, or nil if none.
func (r *Registry) Device(id int) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.devices[id]
}

// ParseReport looks up the device registered under id and decodes report
// through it. Reports for an unregistered id are silently dropped — the
// caller contract is that parse_report on a failed-descriptor device is a
// no-op (spec.md §7).
func (r *Registry) ParseReport(id int, report []byte, reportID byte, sink Sink) {
	r.mu.Lock()
	dev := r.devices[id]
	r.mu.Unlock()
	if dev == nil {
		return
	}
	ParseReport(dev, report, reportID, sink)
}
