// Package startup loads configuration from the environment, validates the
// directories and external tools the publisher depends on, and provides the
// structured startup/shutdown logging used by main.
package startup
