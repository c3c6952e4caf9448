// Package normalisers extracts plain text from the file formats books and
// papers arrive in. Each normaliser handles some MIME types; the Registry
// picks the highest-priority one for a file.
package normalisers
