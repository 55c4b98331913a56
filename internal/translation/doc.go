// Package translation turns merged caption cues into narrated cues.
//
// The Pipeline walks cues sequentially: memo lookup, primary translator (a
// chat completion model), secondary translator (DeepLX), and finally
// passthrough of the original text. Every cue gets a base narration rate
// fitted to its own time window. Only context cancellation stops a batch.
package translation
