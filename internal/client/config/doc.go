// Package config loads runtime configuration for the packctl CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file (JSON, YAML or TOML) selected via -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the verification gRPC endpoint
//	-h string   base URL of the pack management HTTP API
//	-t int      request timeout (seconds)
//
// # Config file keys
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "http_base_url": "http://127.0.0.1:8080",
//	  "request_timeout": "30s"
//	}
package config
