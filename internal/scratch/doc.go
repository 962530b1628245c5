// Package scratch manages the transient files a publish pipeline creates:
// the saved source upload, downloaded explainers, merge intermediates, and
// the final deliverable.
//
// Artifacts are owned by exactly one pipeline invocation. Allocation
// produces collision-resistant names; release is best-effort and attempts
// every artifact even when individual deletions fail.
package scratch
