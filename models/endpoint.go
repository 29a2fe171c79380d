package models

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Endpoint is the network address of one counting worker.
type Endpoint struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// Addr returns the dialable host:port form.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string {
	return e.Addr()
}

// Validate checks the endpoint has a host and a port in range.
func (e Endpoint) Validate() error {
	if strings.TrimSpace(e.Host) == "" {
		return fmt.Errorf("endpoint %q has no host", e.Addr())
	}
	if e.Port < 1 || e.Port > 65535 {
		return fmt.Errorf("endpoint %q has port out of range", e.Addr())
	}
	return nil
}

// ParseEndpoint parses "host:port". A bare ":port" means localhost.
func ParseEndpoint(raw string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(raw))
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: %w", raw, err)
	}
	if host == "" {
		host = "localhost"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid port in endpoint %q: %w", raw, err)
	}
	ep := Endpoint{Host: host, Port: port}
	if err := ep.Validate(); err != nil {
		return Endpoint{}, err
	}
	return ep, nil
}
