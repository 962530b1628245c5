// Package ffmpeg runs the ffmpeg binary as a subprocess and turns its
// exit status and stderr chatter into structured results: progress lines
// are surfaced at debug level while running, and on failure the exit code
// plus a short diagnostic tail of stderr come back in a ProcessError.
package ffmpeg
