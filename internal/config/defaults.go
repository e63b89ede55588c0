// Package config provides configuration loading and defaults for basalcoach.
package config

import (
	"time"

	"github.com/basalcoach/basalcoach/internal/therapy"
)

// DefaultConfigDir is the default location for basalcoach configuration.
const DefaultConfigDir = "~/.config/basalcoach"

// DefaultDBName is the filename for the SQLite database.
const DefaultDBName = "basalcoach.db"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// DefaultInboxDir is where the watcher looks for new CGM summaries.
const DefaultInboxDir = DefaultConfigDir + "/inbox"

// DefaultHistoryLimit is how many imported reports are kept.
const DefaultHistoryLimit = 20

// DefaultGoals are the consensus CGM targets.
var DefaultGoals = therapy.DefaultGoals()

// DefaultWatch holds the default watcher settings.
var DefaultWatch = Watch{
	Interval: 30 * time.Second,
	Notify:   true,
}

// DefaultServer holds the default HTTP listener settings.
var DefaultServer = Server{
	Addr: "127.0.0.1:8484",
}

// DefaultOutput holds the default output preferences.
var DefaultOutput = Output{
	Color: true,
	Width: 80,
}

// DefaultLog holds the default logging settings.
var DefaultLog = Log{
	Level:  "info",
	Format: "text",
}
