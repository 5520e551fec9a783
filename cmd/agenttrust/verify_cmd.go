package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"agenttrust/internal/domain"
	"agenttrust/internal/infra/crypto"
	"agenttrust/internal/infra/keyfetch"
	"agenttrust/internal/usecase"
)

func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var inPath string
	var pubkeyPath string
	var skipSignature bool
	var format string
	var outPath string

	fs.StringVar(&inPath, "in", "", "document JSON path")
	fs.StringVar(&pubkeyPath, "pubkey", "", "public key PEM path (overrides public_key_hint)")
	fs.BoolVar(&skipSignature, "skip-signature", false, "structural checks only")
	fs.StringVar(&format, "format", "json", "output format: json or text")
	fs.StringVar(&outPath, "out", "", "output path (default stdout)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if inPath == "" {
		fmt.Fprintln(os.Stderr, "verify requires --in")
		return 1
	}
	if format != "json" && format != "text" {
		fmt.Fprintln(os.Stderr, "verify --format must be json or text")
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

	opts := usecase.ValidateOptions{SkipVerification: skipSignature}
	if pubkeyPath != "" {
		pemBytes, err := os.ReadFile(pubkeyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read public key: %v\n", err)
			return 1
		}
		pemText := string(pemBytes)
		opts.PublicKeyResolver = func(ctx context.Context, url string) (string, error) {
			return pemText, nil
		}
	}

	validator := &usecase.DocumentValidator{
		Verifier: &usecase.DocumentVerifier{
			Crypto: crypto.NewService(),
			Keys:   keyfetch.New(&http.Client{}, 0),
		},
		Structural: &usecase.StructuralValidator{},
	}
	report := validator.Validate(context.Background(), doc, opts)

	var out []byte
	if format == "text" {
		out = []byte(renderText(report))
	} else {
		out, err = json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "encode report: %v\n", err)
			return 1
		}
	}
	if err := writeOutput(outPath, out); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	if !report.Valid {
		return 2
	}
	return 0
}

// renderText is the human-oriented rendering: verdict, score, the ordered
// step trace, then issues and structural findings.
func renderText(report domain.ValidationReport) string {
	var b strings.Builder

	verdict := "INVALID"
	if report.Valid {
		verdict = "VALID"
	}
	fmt.Fprintf(&b, "%s (score %d)\n", verdict, report.Score)

	if report.SignatureDiagnostics != nil {
		b.WriteString("\nsteps:\n")
		for _, step := range report.SignatureDiagnostics.Steps {
			marker := " "
			switch step.Outcome {
			case domain.StepSuccess:
				marker = "+"
			case domain.StepFailed:
				marker = "x"
			case domain.StepSkipped:
				marker = "-"
			}
			fmt.Fprintf(&b, "  [%s] %s", marker, step.Name)
			if step.Message != "" {
				fmt.Fprintf(&b, ": %s", step.Message)
			}
			b.WriteString("\n")
		}
		if len(report.SignatureDiagnostics.DetectedIssues) > 0 {
			b.WriteString("\nissues:\n")
			for _, issue := range report.SignatureDiagnostics.DetectedIssues {
				fmt.Fprintf(&b, "  [%s] %s: %s\n", issue.Severity, issue.Code, issue.Title)
			}
		}
	}

	if len(report.Errors) > 0 {
		b.WriteString("\nerrors:\n")
		for _, e := range report.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}
	if len(report.Warnings) > 0 {
		b.WriteString("\nwarnings:\n")
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}
	return b.String()
}
