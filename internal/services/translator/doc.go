// Package translator renders tagged transcript text into the target
// language through an OpenAI-compatible chat completion endpoint.
//
// The caller supplies the full tagged text for a transcript in one
// request so the model keeps cross-segment context; the response is
// expected to preserve the index tags, which the transcript codec
// validates on decode.
package translator
