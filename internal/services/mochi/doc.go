// Package mochi is a thin client for the Mochi card API. It creates
// decks and cards; batching, retries, and card-id bookkeeping live with
// the callers.
package mochi
