package bot

// Options tunes the Telegram bot
type Options struct {
	// UpdateTimeout is the long-polling timeout in seconds.
	UpdateTimeout int
	// RecentShown caps the recent activities listed by /progress.
	RecentShown int
}

// DefaultOptions returns the default bot options
func DefaultOptions() Options {
	return Options{
		UpdateTimeout: 60,
		RecentShown:   3,
	}
}
