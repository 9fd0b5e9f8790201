// Package config handles loading and validating offgrid-core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Optional .env files for local overrides
//   - Overriding with environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - Broker passwords and InfluxDB tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	if err := config.LoadDotEnv(".env"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.OneWire.BaseDir)
package config
