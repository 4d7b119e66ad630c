// Package inbox defines the user-facing notifications raised during ingest.
package inbox

// Message is one inbox entry. Sinks may drop a message whose DedupKey they
// have already delivered.
type Message struct {
	Subject     string `json:"subject"`
	DetailsHTML string `json:"details_html"`
	DedupKey    string `json:"dedup_key"`
}
