package crypto

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"testing"

	"agenttrust/internal/domain"
)

func generateKey(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return pub, priv
}

func TestEncodePublicKeyPEM_MatchesPKIX(t *testing.T) {
	pub, _ := generateKey(t)

	pemText, err := EncodePublicKeyPEM(pub)
	if err != nil {
		t.Fatalf("encode pem: %v", err)
	}

	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("marshal pkix: %v", err)
	}
	want := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	if pemText != string(want) {
		t.Fatalf("pem = %q, want %q", pemText, want)
	}
}

func TestRawKeyFromPEM_RoundTrip(t *testing.T) {
	pub, _ := generateKey(t)

	pemText, err := EncodePublicKeyPEM(pub)
	if err != nil {
		t.Fatalf("encode pem: %v", err)
	}
	raw, err := RawKeyFromPEM(pemText)
	if err != nil {
		t.Fatalf("raw key from pem: %v", err)
	}
	if !bytes.Equal(raw, pub) {
		t.Fatalf("raw key does not match original public key")
	}
}

func TestRawKeyFromPEM_TakesTrailingBytes(t *testing.T) {
	pub, _ := generateKey(t)
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("marshal pkix: %v", err)
	}
	// Surrounding prose and odd line breaks must not matter.
	pemText := "prefix junk\n-----BEGIN PUBLIC KEY-----\n  " +
		base64.StdEncoding.EncodeToString(der) +
		"\n-----END PUBLIC KEY-----\ntrailing"
	raw, err := RawKeyFromPEM(pemText)
	if err != nil {
		t.Fatalf("raw key from pem: %v", err)
	}
	if !bytes.Equal(raw, pub) {
		t.Fatalf("raw key does not match original public key")
	}
}

func TestRawKeyFromPEM_Errors(t *testing.T) {
	cases := []struct {
		name string
		pem  string
	}{
		{"no_markers", "not a key"},
		{"footer_before_header", "-----END PUBLIC KEY-----\n-----BEGIN PUBLIC KEY-----"},
		{"bad_base64", "-----BEGIN PUBLIC KEY-----\n!!!\n-----END PUBLIC KEY-----"},
		{"too_short", "-----BEGIN PUBLIC KEY-----\n" +
			base64.StdEncoding.EncodeToString(make([]byte, 16)) +
			"\n-----END PUBLIC KEY-----"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := RawKeyFromPEM(tc.pem)
			if !errors.Is(err, domain.ErrInvalidKeyFormat) {
				t.Fatalf("err = %v, want ErrInvalidKeyFormat", err)
			}
		})
	}
}

func TestVerifyEd25519(t *testing.T) {
	pub, priv := generateKey(t)
	payload := []byte(`{"metadata":{"name":"agent"}}`)
	signature := ed25519.Sign(priv, payload)

	if !VerifyEd25519(payload, signature, pub) {
		t.Fatal("valid signature rejected")
	}

	tampered := append([]byte(nil), payload...)
	tampered[0] ^= 0x01
	if VerifyEd25519(tampered, signature, pub) {
		t.Fatal("tampered payload accepted")
	}

	badSig := append([]byte(nil), signature...)
	badSig[0] ^= 0x01
	if VerifyEd25519(payload, badSig, pub) {
		t.Fatal("tampered signature accepted")
	}

	otherPub, _ := generateKey(t)
	if VerifyEd25519(payload, signature, otherPub) {
		t.Fatal("signature accepted under wrong key")
	}

	if VerifyEd25519(payload, signature[:10], pub) {
		t.Fatal("short signature accepted")
	}
	if VerifyEd25519(payload, signature, pub[:16]) {
		t.Fatal("short key accepted")
	}
}

func TestDecodeBase64(t *testing.T) {
	got, err := DecodeBase64(base64.StdEncoding.EncodeToString([]byte("hi")))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(got) != "hi" {
		t.Fatalf("decoded = %q, want %q", got, "hi")
	}

	if _, err := DecodeBase64("%%%"); !errors.Is(err, domain.ErrInvalidEncoding) {
		t.Fatalf("err = %v, want ErrInvalidEncoding", err)
	}
}
