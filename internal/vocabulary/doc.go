// Package vocabulary holds the static tables the classifier, segmenter and
// query analyser share: the theme vocabulary, discourse marker lists,
// stop and filler words, abbreviations, symbol groups and topic detectors.
//
// Everything is compiled once and read-only afterwards. The theme
// vocabulary ships as an embedded TOML asset and may be replaced by a
// user file with the same layout.
package vocabulary
