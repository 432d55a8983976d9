package config

import (
	"fmt"
	"strconv"
)

// AdminConfig contains the admin HTTP surface configuration
type AdminConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Host    string `json:"host" yaml:"host"`
	Port    string `json:"port" yaml:"port"`
}

// Validate validates the admin configuration
func (a AdminConfig) Validate() error {
	if !a.Enabled {
		return nil
	}

	if a.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}

	if err := validatePort(a.Port, "port"); err != nil {
		return err
	}

	return nil
}

// Address returns the listen address of the admin server
func (a AdminConfig) Address() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// validatePort validates a port string
func validatePort(portStr, fieldName string) error {
	if portStr == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("%s must be a valid port number: %w", fieldName, err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535", fieldName)
	}

	// Reject privileged ports (1-1023) except for common HTTP/HTTPS ports
	if port < 1024 && port != 80 && port != 443 {
		return fmt.Errorf("%s %d is a privileged port (1-1023) and requires elevated privileges - use ports 1024-65535 instead", fieldName, port)
	}

	return nil
}

// DefaultAdminConfig returns default admin configuration
func DefaultAdminConfig() AdminConfig {
	return AdminConfig{
		Enabled: true,
		Host:    "localhost",
		Port:    "9464",
	}
}
