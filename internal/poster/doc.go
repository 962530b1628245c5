// Package poster extracts a representative frame from a published video
// and scales it down to a JPEG poster image. Poster generation is always
// best-effort; a publish never fails because of it.
package poster
