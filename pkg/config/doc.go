// Package config provides map-backed configuration with type-safe
// accessors and loaders for YAML, JSON, and the process environment.
//
// A Config never fails at read time: every accessor takes a default
// that is returned when the key is missing or the value has the wrong
// type. Keys are dotted paths into nested sections:
//
//	cfg, err := config.FromFile("tripgraph.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	backend := cfg.String("store.backend", "memory")
//	gates := cfg.Bool("review.enabled", true)
//
// Environment variables layer on top via FromEnv, with underscores in
// the variable name mapping to dots in the key, and LoadDotenv pulls a
// local .env file into the environment first when present.
package config
