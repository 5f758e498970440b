package driven

// ConfigStore provides persistent key-value configuration.
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	Get(key string) (any, bool)

	// GetString retrieves a string value, "" if absent.
	GetString(key string) string

	// GetInt retrieves an integer value, 0 if absent.
	GetInt(key string) int

	// GetBool retrieves a boolean value, false if absent.
	GetBool(key string) bool

	// GetStringSlice retrieves a string slice value, nil if absent.
	GetStringSlice(key string) []string

	// GetStringMapSlice retrieves a map of string slices (used for
	// the classifier trigger dictionary), nil if absent.
	GetStringMapSlice(key string) map[string][]string

	// Set stores a value and persists immediately.
	Set(key string, value any) error

	// Delete removes a key and persists immediately.
	Delete(key string) error
}
