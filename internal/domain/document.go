package domain

// Document is a parsed agent document: an open mapping of named sections.
// The verification engine recognizes the "trust" and "signature" sections;
// every other section is opaque content that may be covered by the
// signature via trust.signed_blocks.
type Document map[string]any

const (
	SectionTrust     = "trust"
	SectionSignature = "signature"
	SectionMetadata  = "metadata"

	AlgorithmEd25519 = "Ed25519"
)

// TrustSection carries the signing metadata published alongside a document.
type TrustSection struct {
	SignedBlocks  []string
	Algorithm     string
	PublicKeyHint string
	TrustLevel    string
}

// SignatureSection carries the signature value and its issuance time.
type SignatureSection struct {
	Value     string
	CreatedAt string
}

// Trust extracts the trust section. ok is false when the section is absent
// or is not a mapping.
func (d Document) Trust() (TrustSection, bool) {
	raw, ok := d[SectionTrust].(map[string]any)
	if !ok {
		return TrustSection{}, false
	}
	trust := TrustSection{
		Algorithm:     stringField(raw, "algorithm"),
		PublicKeyHint: stringField(raw, "public_key_hint"),
		TrustLevel:    stringField(raw, "trust_level"),
	}
	if blocks, ok := raw["signed_blocks"].([]any); ok {
		for _, b := range blocks {
			if name, ok := b.(string); ok {
				trust.SignedBlocks = append(trust.SignedBlocks, name)
			}
		}
	}
	if blocks, ok := raw["signed_blocks"].([]string); ok {
		trust.SignedBlocks = append([]string(nil), blocks...)
	}
	return trust, true
}

// Signature extracts the signature section. ok is false when the section is
// absent or is not a mapping.
func (d Document) Signature() (SignatureSection, bool) {
	raw, ok := d[SectionSignature].(map[string]any)
	if !ok {
		return SignatureSection{}, false
	}
	return SignatureSection{
		Value:     stringField(raw, "value"),
		CreatedAt: stringField(raw, "created_at"),
	}, true
}

// Section returns the named top-level section value.
func (d Document) Section(name string) (any, bool) {
	v, ok := d[name]
	return v, ok
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
