package domain

// RawDocument is an input file before its text has been extracted.
type RawDocument struct {
	// URI is the file path the bytes were read from.
	URI string

	// MIMEType is the detected content type, e.g. "text/markdown".
	MIMEType string

	Content []byte
}

// ExtractedText is the readable text of a RawDocument.
type ExtractedText struct {
	// Title is the document's own title (first heading, <title>, core
	// properties). Empty when the format carries none.
	Title string `json:"title,omitempty"`

	// Text is the plain text handed to the segmenter.
	Text string `json:"text"`

	// Format names the normaliser that produced the text.
	Format string `json:"format"`
}
