// Package config loads Builder Core's runtime configuration.
//
// Settings resolve in three layers, each overriding the last: compiled
// defaults, the YAML file passed on the command line, then BUILDERCORE_*
// environment variables. Secrets (the JWT signing key, broker and
// InfluxDB credentials) belong in the environment, not the file.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//
// Load validates the merged result and reports every problem in one
// error, so a broken deployment surfaces all of its mistakes at once.
// The returned Config is read once at startup and never mutated.
package config
