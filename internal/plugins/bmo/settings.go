package bmo

import "fmt"

// LoadSettings merges the persisted record over the defaults. Malformed
// values are logged and replaced by defaults; read failures are returned.
func (p *Plugin) LoadSettings() error {
	if err := p.settings.Load(); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	return nil
}

// SaveSettings persists the current record.
func (p *Plugin) SaveSettings() error {
	if err := p.settings.Save(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
