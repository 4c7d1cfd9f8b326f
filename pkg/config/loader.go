package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrParsingConfig wraps env tag parsing failures.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")
	// ErrNilPointer is returned when Load receives a nil destination.
	ErrNilPointer = errors.New("nil pointer provided to config loader")
	// ErrLoadingEnvFile wraps .env file read failures from LoadEnv.
	ErrLoadingEnvFile = errors.New("failed to load env file")
)

// cache stores one parsed copy per configuration type, keyed by type name.
// Parsing runs at most once per type for the process lifetime.
type cache struct {
	mu     sync.Mutex
	values map[string]any
}

var (
	global = &cache{values: make(map[string]any)}

	defaultEnvOnce sync.Once
)

// LoadEnv loads the named .env files into the process environment before any
// config struct is parsed. Missing files are an error here, unlike the silent
// default .env lookup done by Load.
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// Load populates v from the environment using caarlos0/env struct tags. The
// default .env file is loaded once per process if present. Each config type
// is parsed once and cached; later calls return the cached copy.
//
//	type MongoConfig struct {
//	    URI      string `env:"MONGO_URI,required"`
//	    Database string `env:"MONGO_DB" envDefault:"app"`
//	}
//
//	var cfg MongoConfig
//	if err := config.Load(&cfg); err != nil { ... }
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	defaultEnvOnce.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})

	key := typeName[T]()

	global.mu.Lock()
	defer global.mu.Unlock()

	if cached, ok := global.values[key]; ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	// Store a copy so callers mutating their struct cannot poison the cache.
	global.values[key] = *v
	return nil
}

// MustLoad is Load that panics on failure, for configs the process cannot
// start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: failed to load required configuration: %v", err))
	}
}

// Reset clears the config cache. Intended for tests that change the
// environment between loads.
func Reset() {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.values = make(map[string]any)
}

func typeName[T any]() string {
	var zero T
	if t := reflect.TypeOf(zero); t != nil {
		return t.String()
	}
	return fmt.Sprintf("%T", *new(T))
}
