// Package transcribe turns clip audio into text. Clips queue durably when
// sliced and a polling worker runs the local whisper binary over each one,
// storing the transcript on the clip record.
package transcribe
