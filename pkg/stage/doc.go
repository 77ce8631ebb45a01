// Package stage holds the ordered set of accepted files.
//
// A Store runs in one of two modes. In Multi mode every applied batch is
// appended; in Single mode the first file of a batch replaces whatever was
// staged. Image entries own a preview handle from the Previewer, and the
// Store releases it whenever the entry leaves: on Remove, on replacement
// and on Clear.
//
// After each completed mutation the Store calls its Observer with the
// projected Value: the ordered file list in Multi mode, one file or nothing
// in Single mode. Observers run synchronously while the store is locked and
// must not call back into the same Store.
package stage
