// Package streaming guards long-running byte transfers against stalls.
// A network peer that stops sending without closing the connection would
// otherwise pin a pipeline until its overall deadline; the idle-timeout
// copier aborts as soon as no bytes arrive for the configured window.
package streaming
