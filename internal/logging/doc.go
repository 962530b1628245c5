// Package logging provides the leveled logging used across the video
// publisher.
//
// Levels, from most to least verbose: DEBUG, INFO, WARN, ERROR. The level
// is read from the LOG_LEVEL environment variable (DEBUG=true also enables
// debug output); tests can pin it with SetLevel.
package logging
