// Package rst rewrites reStructuredText documents so Sphinx can build them
// from a directory other than the one they were written in.
//
// Rewriter scans a document line by line for the include directive token.
// The token following it is resolved against the document's base directory,
// re-expressed relative to the Sphinx build directory and written back in
// place of the original argument. Included targets that are themselves reST
// files are returned so callers can process them next. Symbolic links met
// as include targets are replaced by a copy of the file they point to.
//
// Denumberer strips the overline/underline decoration of the first title in
// a generated top-level document and turns it into a rubric heading.
package rst
