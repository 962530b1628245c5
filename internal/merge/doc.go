// Package merge concatenates a primary repair video with an explainer
// video. Because the two inputs rarely share codecs or geometry, each is
// first normalized to a common frame and encoding as an MPEG-TS
// intermediate, and the intermediates are then concatenated losslessly
// into the final MP4. Intermediates are removed as soon as the final
// output exists; the caller owns the final output's lifecycle.
package merge
