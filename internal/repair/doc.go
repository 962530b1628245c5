// Package repair talks to the repair order API: it requests presigned
// upload targets for task videos and patches task metadata after a
// successful publish.
//
// Presigned POST responses carry signer fields whose order is part of
// the signature contract, so the decoder preserves the order the server
// sent them in instead of collecting them into a map.
package repair
