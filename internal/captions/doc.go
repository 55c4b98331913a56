// Package captions loads raw caption fragments for a video.
//
// Tracks come from a directory of <video_id>.xml or .json3 files, from an
// HTTP URL template, or directly from the caller. Both the timedtext XML
// and json3 encodings are parsed; the format is sniffed from the payload.
// A missing or empty track reports ErrUnavailable, an unparsable one
// ErrMalformed.
package captions
