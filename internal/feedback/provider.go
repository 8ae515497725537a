package feedback

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Provider is a chat completion backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type ProviderConfig struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

type ProviderFactory func(config ProviderConfig) (Provider, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]ProviderFactory)
)

func RegisterProvider(name string, factory ProviderFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, dup := factories[name]; dup {
		panic("feedback: provider registered twice: " + name)
	}
	factories[name] = factory
}

func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewProvider returns ErrDisabled for an empty provider name.
func NewProvider(config ProviderConfig) (Provider, error) {
	if config.Provider == "" {
		return nil, ErrDisabled
	}
	factoriesMu.RLock()
	factory, found := factories[config.Provider]
	factoriesMu.RUnlock()
	if !found {
		return nil, fmt.Errorf("unknown feedback provider %q, known: %v", config.Provider, Providers())
	}
	return factory(config)
}

// ProviderError carries the HTTP status of a failed provider call.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s request failed (%d): %v", e.Provider, e.Status, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the call can help.
func (e *ProviderError) Temporary() bool {
	return e.Status == 0 || e.Status == 408 || e.Status == 429 || e.Status >= 500
}
