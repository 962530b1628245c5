// Package pipeline orchestrates a publish: optionally fetch and merge an
// explainer video, obtain an upload target, deliver the final video, and
// patch the task's metadata. Each run owns its scratch artifacts and
// releases every one of them exactly once on every exit path.
package pipeline
