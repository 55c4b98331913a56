// Package narration defines the speech sink used to voice translated cues.
//
// A Sink speaks one Request at a time; Speak returns an Utterance whose
// completion is only observed for logging. CommandSink drives an external
// engine (espeak-ng by default) with a templated argument list; LogSink
// prints requests for dry runs.
package narration
