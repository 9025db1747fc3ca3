package winsvc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrExists is returned by Install when the service is already registered.
var ErrExists = errors.New("service already exists")

// Config describes a service registration.
type Config struct {
	Name        string
	DisplayName string
	Description string
	// Args are passed to the executable when the SCM starts it.
	Args []string
	// Dependencies are services the SCM starts before this one.
	Dependencies []string
	// DelayedStart defers an automatic start until boot services settle.
	DelayedStart bool
}

// Validate checks the fields the SCM rejects and fills DisplayName from
// Name when it is empty.
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("service name is required")
	}
	if strings.ContainsAny(c.Name, `/\ `) {
		return fmt.Errorf("invalid service name %q: slashes and spaces are not allowed", c.Name)
	}
	if len(c.Name) > 256 {
		return fmt.Errorf("service name is %d characters, the limit is 256", len(c.Name))
	}
	if c.DisplayName == "" {
		c.DisplayName = c.Name
	}
	for _, d := range c.Dependencies {
		if strings.TrimSpace(d) == "" {
			return errors.New("empty service dependency")
		}
	}
	return nil
}
