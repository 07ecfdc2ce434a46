// Package cards creates remote flashcards for transcript tokens and
// segments.
//
// Token cards cover the distinct vocabulary surfaces of a whole transcript:
// a batched catalog lookup finds surfaces that already have cards, the rest
// are created through a bounded worker pool with per-item retries, and the
// merged ids are broadcast back onto every token occurrence. Segment cards
// live in a deck created per transcript and cross-link the token cards.
// Both phases report per-item failures in their result instead of aborting
// the batch.
package cards
