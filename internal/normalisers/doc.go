// Package normalisers provides the registry that dispatches raw documents
// to format-specific Normaliser implementations. Each subpackage knows how
// to extract text from one family of MIME types.
//
// Normalisers are registered with the Registry at startup; see Defaults.
package normalisers
