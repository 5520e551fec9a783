package sign

import (
	"context"
	"crypto/ed25519"
	"strings"
	"testing"

	"agenttrust/internal/domain"
	cryptoinfra "agenttrust/internal/infra/crypto"
	"agenttrust/internal/usecase"
)

func TestGenerateKeyPair(t *testing.T) {
	publicPEM, private, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(private) != 64 {
		t.Fatalf("private key = %d bytes, want 64", len(private))
	}
	if !strings.Contains(publicPEM, "BEGIN PUBLIC KEY") {
		t.Fatalf("pem missing marker: %q", publicPEM)
	}
	if _, err := cryptoinfra.RawKeyFromPEM(publicPEM); err != nil {
		t.Fatalf("pem does not parse back: %v", err)
	}
	want, err := cryptoinfra.EncodePublicKeyPEM(private.Public().(ed25519.PublicKey))
	if err != nil {
		t.Fatalf("encode public half: %v", err)
	}
	if publicPEM != want {
		t.Fatalf("returned pem does not match the private key's public half")
	}
}

func TestSign_RoundTripVerifies(t *testing.T) {
	publicPEM, private, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	doc := domain.Document{
		"metadata": map[string]any{
			"name":        "signed-agent",
			"description": "d",
			"version":     "1.0",
		},
		"capabilities": []any{"search"},
	}
	signed, err := Sign(doc, private, Options{
		SignedBlocks:  []string{"metadata", "capabilities", "trust"},
		PublicKeyHint: "https://keys.example.com/a.pem",
		TrustLevel:    "verified",
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	verifier := &usecase.DocumentVerifier{Crypto: cryptoinfra.NewService()}
	resolver := func(ctx context.Context, url string) (string, error) { return publicPEM, nil }
	result := verifier.Verify(context.Background(), signed, usecase.VerifyOptions{PublicKeyResolver: resolver})
	if !result.Valid {
		t.Fatalf("round trip failed: %s", result.Error)
	}
}

func TestSign_DoesNotMutateInput(t *testing.T) {
	_, private, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	doc := domain.Document{"metadata": map[string]any{"name": "a"}}
	if _, err := Sign(doc, private, Options{SignedBlocks: []string{"metadata"}}); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, ok := doc["trust"]; ok {
		t.Fatal("input document gained a trust section")
	}
	if _, ok := doc["signature"]; ok {
		t.Fatal("input document gained a signature section")
	}
}

func TestSign_TamperBreaksSignature(t *testing.T) {
	publicPEM, private, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	signed, err := Sign(domain.Document{
		"metadata": map[string]any{"name": "a", "description": "b"},
	}, private, Options{
		SignedBlocks:  []string{"metadata"},
		PublicKeyHint: "https://keys.example.com/a.pem",
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	signed["metadata"].(map[string]any)["name"] = "z"

	verifier := &usecase.DocumentVerifier{Crypto: cryptoinfra.NewService()}
	resolver := func(ctx context.Context, url string) (string, error) { return publicPEM, nil }
	result := verifier.Verify(context.Background(), signed, usecase.VerifyOptions{PublicKeyResolver: resolver})
	if result.Valid {
		t.Fatal("tampered document verified")
	}
	if result.Error != "Signature verification failed" {
		t.Fatalf("error = %q, want signature failure", result.Error)
	}
}

func TestSign_RequiresBlocksAndKey(t *testing.T) {
	_, private, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Sign(domain.Document{}, private, Options{}); err == nil {
		t.Fatal("expected error for empty signed blocks")
	}
	if _, err := Sign(domain.Document{}, private[:32], Options{SignedBlocks: []string{"metadata"}}); err == nil {
		t.Fatal("expected error for short private key")
	}
}
