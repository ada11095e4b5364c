// Package config loads portwatch's TOML configuration.
//
// # Configuration Discovery
//
// Load resolves the file in this order:
//
//  1. An explicit path (the --config flag)
//  2. ~/.config/portwatch/config.toml
//  3. Built-in defaults when the file does not exist
//
// Fields that are missing or blank keep their defaults. Durations are written
// as Go duration strings ("300ms", "1m").
//
// # Example
//
//	api_base_url = "https://portman-func.azurewebsites.net"
//	function_key = "..."
//	auth_token = "..."
//	page_delay = "300ms"
//	poll_interval = "60s"
//	missing_policy = "expire"
//	stale_after = "10m"
//	metrics_addr = "127.0.0.1:9464"
//
// # Validation
//
// Validate checks every field and returns all problems combined, so a broken
// file is reported in one pass rather than one error per run.
package config
