// Package prompt holds helpers for building prompts and post-processing text:
// templates with strict variable checking, a rough token estimate, chunking
// long documents to fit a context window, and display formatting.
package prompt
