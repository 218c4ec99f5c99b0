// Package config handles configuration loading for the charla server.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${CHARLA_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	auth:
//	  token_ttl: "24h"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # REST API and websocket endpoint
//
// Database:
//
//	database:
//	  path: "/var/lib/charla/charla.db"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${CHARLA_JWT_SECRET}"  # Required
//	  token_ttl: "24h"                    # Default 24h
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
//	cfg, err := config.Load("/etc/charla/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
