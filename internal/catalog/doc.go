// Package catalog looks up explainer videos by id. An explainer is a
// pre-produced clip a shop appends to a repair video; the catalog maps
// its id to the source URL it can be downloaded from.
package catalog
