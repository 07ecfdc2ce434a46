// Package daemon coordinates the long-running instantcards process.
//
// It wires configuration, the job store, the card pipeline, and the control
// API into a single lifecycle with flock-based locking to prevent multiple
// instances. The daemon owns job submission validation, requeues jobs that
// were interrupted mid-run, and drives the polling worker that hands pending
// jobs to the pipeline.
//
// Keep orchestration logic here: the processing steps themselves live in the
// pipeline and its collaborator packages while the daemon focuses on startup,
// shutdown, and high level coordination.
package daemon
