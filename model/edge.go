package model

// Edge is the canonical package-related-vulnerability record. Exactly one
// Edge may exist per (_from package, _to vulnerability) pair; the merge
// engine is the only writer.
type Edge struct {
	Key        string `json:"_key,omitempty"`
	From       string `json:"_from"` // package/<key>
	To         string `json:"_to"`   // vulnerability/<key>
	Fix        bool   `json:"fix"`
	Confidence int    `json:"confidence"`
	CreatedBy  string `json:"created_by"`
	ObjType    string `json:"objtype,omitempty"`
}
