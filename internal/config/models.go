package config

import "time"

// Registry represents the entire user configuration file: named
// appliances and application preferences.
type Registry struct {
	Version     int                   `yaml:"version"`
	Appliances  map[string]*Appliance `yaml:"appliances,omitempty"` // keyed by user-chosen name
	Preferences *Preferences          `yaml:"preferences,omitempty"`
}

// Appliance stores how to reach one appliance. This is purely
// client-side bookkeeping so commands can say --device kitchen instead
// of repeating the URL.
type Appliance struct {
	BaseURL  string    `yaml:"base_url"`            // e.g. "http://192.168.1.50"
	Username string    `yaml:"username,omitempty"`  // digest auth username, empty = unauthenticated
	Serial   string    `yaml:"serial,omitempty"`    // serial number, filled on first contact
	Model    string    `yaml:"model,omitempty"`     // model description, filled on first contact
	LastSeen time.Time `yaml:"last_seen,omitempty"` // last successful contact
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	// StateInterval is the state poll cadence in seconds used by the
	// watch command.
	StateInterval int `yaml:"state_interval"`
	// ConfigInterval is the configuration tree poll cadence in seconds.
	ConfigInterval int `yaml:"config_interval"`
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:    1,
		Appliances: make(map[string]*Appliance),
		Preferences: &Preferences{
			StateInterval:  30,
			ConfigInterval: 300,
		},
	}
}

// GetAppliance retrieves an appliance by name. Returns nil if the name
// is unknown.
func (r *Registry) GetAppliance(name string) *Appliance {
	return r.Appliances[name]
}

// SetAppliance adds or replaces an appliance entry.
func (r *Registry) SetAppliance(name string, appliance *Appliance) {
	if r.Appliances == nil {
		r.Appliances = make(map[string]*Appliance)
	}
	r.Appliances[name] = appliance
}

// RemoveAppliance deletes an appliance entry. Returns whether the name
// existed.
func (r *Registry) RemoveAppliance(name string) bool {
	if _, ok := r.Appliances[name]; !ok {
		return false
	}
	delete(r.Appliances, name)
	return true
}

// TouchAppliance records a successful contact with the appliance,
// updating the identity fields learned from the device.
func (r *Registry) TouchAppliance(name, serial, model string) {
	appliance := r.Appliances[name]
	if appliance == nil {
		return
	}
	appliance.LastSeen = time.Now()
	if serial != "" {
		appliance.Serial = serial
	}
	if model != "" {
		appliance.Model = model
	}
}
