// Package integration holds cross-package tests that wire the engine
// to its real collaborators: the SQLite state store and the answers
// drop-directory watcher. Generation and scoring stay scripted; the
// persistence and answer-delivery paths are the real thing.
package integration
