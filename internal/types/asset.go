package types

// Asset is a creative asset shown to every persona during judging.
// The pipeline only reads assets to build attachment payloads; it never
// mutates the bytes.
type Asset struct {
	ID       string `json:"id"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
}
