package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "verify":
		return runVerify(args[2:])
	case "sign":
		return runSign(args[2:])
	case "keygen":
		return runKeygen(args[2:])
	case "crawl":
		return runCrawl(args[2:])
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "agenttrust"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s verify --in <document.json> [--pubkey <key.pem>] [--skip-signature] [--format json|text] [--out <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s sign --in <document.json> (--key-hex <hex>|--key-base64 <b64>) --blocks <a,b,...> [--hint <url>] [--trust-level <level>] [--out <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s keygen [--pub-out <key.pem>] [--key-out <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s crawl\n", name)
}
