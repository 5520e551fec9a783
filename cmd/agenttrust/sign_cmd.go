package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"agenttrust/internal/domain"
	"agenttrust/pkg/sign"
)

func runSign(args []string) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var inPath string
	var keyHex string
	var keyBase64 string
	var blocks string
	var hint string
	var trustLevel string
	var outPath string

	fs.StringVar(&inPath, "in", "", "document JSON path")
	fs.StringVar(&keyHex, "key-hex", "", "ed25519 private key hex (64 bytes)")
	fs.StringVar(&keyBase64, "key-base64", "", "ed25519 private key base64 (64 bytes)")
	fs.StringVar(&blocks, "blocks", "", "comma-separated section names to sign")
	fs.StringVar(&hint, "hint", "", "public key hint URL")
	fs.StringVar(&trustLevel, "trust-level", "", "trust level label")
	fs.StringVar(&outPath, "out", "", "output path (default stdout)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if inPath == "" {
		fmt.Fprintln(os.Stderr, "sign requires --in")
		return 1
	}
	if blocks == "" {
		fmt.Fprintln(os.Stderr, "sign requires --blocks")
		return 1
	}
	if (keyHex == "" && keyBase64 == "") || (keyHex != "" && keyBase64 != "") {
		fmt.Fprintln(os.Stderr, "sign requires exactly one of --key-hex or --key-base64")
		return 1
	}

	private, err := parsePrivateKey(keyHex, keyBase64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse private key: %v\n", err)
		return 1
	}

	docBytes, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read document: %v\n", err)
		return 1
	}
	var doc domain.Document
	if err := json.Unmarshal(docBytes, &doc); err != nil {
		fmt.Fprintf(os.Stderr, "decode document: %v\n", err)
		return 1
	}

	signedBlocks := splitBlocks(blocks)
	signed, err := sign.Sign(doc, private, sign.Options{
		SignedBlocks:  signedBlocks,
		PublicKeyHint: hint,
		TrustLevel:    trustLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign document: %v\n", err)
		return 1
	}

	out, err := json.MarshalIndent(signed, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode document: %v\n", err)
		return 1
	}
	if err := writeOutput(outPath, out); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func runKeygen(args []string) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var pubOut string
	var keyOut string
	fs.StringVar(&pubOut, "pub-out", "", "public key PEM output path (default stdout)")
	fs.StringVar(&keyOut, "key-out", "", "private key base64 output path (default stdout)")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	publicPEM, private, err := sign.GenerateKeyPair()
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key pair: %v\n", err)
		return 1
	}
	if err := writeOutput(pubOut, []byte(publicPEM)); err != nil {
		fmt.Fprintf(os.Stderr, "write public key: %v\n", err)
		return 1
	}
	privateB64 := base64.StdEncoding.EncodeToString(private)
	if err := writeOutput(keyOut, []byte(privateB64)); err != nil {
		fmt.Fprintf(os.Stderr, "write private key: %v\n", err)
		return 1
	}
	return 0
}

func parsePrivateKey(hexValue, b64Value string) (ed25519.PrivateKey, error) {
	var raw []byte
	var err error
	if hexValue != "" {
		raw, err = hex.DecodeString(hexValue)
	} else {
		raw, err = base64.StdEncoding.DecodeString(b64Value)
	}
	if err != nil {
		return nil, err
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, errors.New("private key must decode to 64 bytes")
	}
	return ed25519.PrivateKey(raw), nil
}

func splitBlocks(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
