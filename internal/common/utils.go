package common

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dtnitsch/distributed-wordcount/models"
)

// NewLogger builds the JSON stderr logger every action uses.
func NewLogger(quiet, verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	switch {
	case quiet:
		logLevel = slog.LevelError
	case verbose:
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// ContentHash computes SHA256 hash of content and returns hex string.
func ContentHash(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// EndpointsKey identifies an ordered endpoint list. Order matters because
// chunk i always goes to endpoint i.
func EndpointsKey(endpoints []models.Endpoint) string {
	addrs := make([]string, len(endpoints))
	for i, ep := range endpoints {
		addrs[i] = ep.Addr()
	}
	return strings.Join(addrs, ",")
}

// SanitizeEndpoint trims copy-paste debris around a host:port entry.
func SanitizeEndpoint(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.Trim(cleaned, "\"'")
	cleaned = strings.TrimPrefix(cleaned, "tcp://")
	cleaned = strings.TrimRight(cleaned, ",;/")
	return strings.TrimSpace(cleaned)
}

// ParseEndpoints splits a comma-separated host:port list and returns
// (valid endpoints in order, invalid raw entries). Empty entries are skipped.
func ParseEndpoints(list string) ([]models.Endpoint, []string) {
	var endpoints []models.Endpoint
	var invalid []string

	for _, raw := range strings.Split(list, ",") {
		cleaned := SanitizeEndpoint(raw)
		if cleaned == "" {
			continue
		}
		ep, err := models.ParseEndpoint(cleaned)
		if err != nil {
			invalid = append(invalid, strings.TrimSpace(raw))
			continue
		}
		endpoints = append(endpoints, ep)
	}

	return endpoints, invalid
}
