// Package config loads application configuration from environment variables
// into tagged structs, with per-type caching.
//
// It wraps github.com/joho/godotenv for optional .env files and
// github.com/caarlos0/env/v11 for struct parsing. Each configuration type is
// parsed once per process; later Load calls for the same type are served from
// an in-memory cache, so independent subsystems can each call Load for their
// own config struct without coordination.
//
// # Usage
//
//	type RedisConfig struct {
//	    URL string `env:"REDIS_URL,required"`
//	}
//
//	var cfg RedisConfig
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// MustLoad panics on failure for configs the process cannot run without.
// Reset clears the cache between tests that mutate the environment.
package config
