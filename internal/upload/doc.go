// Package upload delivers the final video to the object store using the
// target handed out by the repair API: either a presigned POST (multipart
// form with signer-supplied fields) or a presigned PUT (raw body).
//
// The multipart body is never buffered in memory. The form prefix and
// suffix are small and rendered up front, which also lets the request
// carry an exact Content-Length; the file itself streams from disk.
package upload
