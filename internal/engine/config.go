package engine

// Config controls depth growth and table bounds of a search.
type Config struct {
	// MaxTTDepth is the ply horizon below which results are cached.
	MaxTTDepth int `json:"max_tt_depth"`
	// MaxTTEntries caps each table generation.
	MaxTTEntries int `json:"max_tt_entries"`
	// DepthStep is how much the depth limit grows per iteration.
	DepthStep int `json:"depth_step"`
	// MaxDepth stops iterative deepening at this depth (0 = no limit).
	MaxDepth int `json:"max_depth"`
}

// Default configuration values
const (
	DefaultMaxTTDepth   = 20
	DefaultMaxTTEntries = 30_000_000
	DefaultDepthStep    = 1
)

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		MaxTTDepth:   DefaultMaxTTDepth,
		MaxTTEntries: DefaultMaxTTEntries,
		DepthStep:    DefaultDepthStep,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxTTDepth <= 0 {
		c.MaxTTDepth = DefaultMaxTTDepth
	}
	if c.MaxTTEntries <= 0 {
		c.MaxTTEntries = DefaultMaxTTEntries
	}
	if c.DepthStep <= 0 {
		c.DepthStep = DefaultDepthStep
	}
	if c.MaxDepth < 0 {
		c.MaxDepth = 0
	}
	return c
}
