// Package syncqueue persists local change intents and uploads them to the
// optional remote sync endpoint. Recording an intent is cheap and local;
// delivery happens later on a polling drainer, so every mutation path stays
// usable offline.
package syncqueue
