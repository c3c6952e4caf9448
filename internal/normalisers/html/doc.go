// Package html provides a Normaliser for HTML and XHTML books and articles.
// It strips tags, scripts and styles, decodes entities and keeps one blank
// line between blocks so paragraphs survive for the segmenter.
package html
