// Package filesystem loads local files as chunked documents for the
// knowledge base. It walks directories, picks a normaliser by file
// extension, and chunks the text through the post-processing pipeline.
// A Watcher reports files that appear or change under a directory.
package filesystem
