// Package estimator talks to the nutrition estimation backends.
//
// Two backends exist. WorkerClient posts a JSON request to an HTTP worker
// and returns its JSON body as-is. GeminiClient asks a Gemini model for the
// same JSON shape through google.golang.org/genai.
//
// # Requests
//
// A Request carries exactly one kind of input: a photo (base64 image and
// mime type), free text, a correction against the previous payload, or a
// final request that asks the backend to produce the note-ready version of
// the previous payload.
//
// # Responses
//
// Responses stay untyped. Callers read them through macros.Payload or
// through FieldPaths, which locate fields with JSONPath expressions taken
// from configuration.
//
// # Failures
//
// A body that is not JSON, or a JSON object with an "error" field, yields
// ErrMalformedResponse. Nothing is retried; callers decide whether to fall
// back to earlier data.
package estimator
