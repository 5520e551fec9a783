package policyopa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"agenttrust/internal/domain"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.agenttrust.policy.result"

// Engine evaluates a rego bundle over composed validation reports to decide
// whether an agent may be listed. The bundle hash is pinned at load time so
// stored decisions can name the exact policy that produced them.
type Engine struct {
	query      rego.PreparedEvalQuery
	bundleID   string
	bundleHash string
}

type policyInput struct {
	Valid          bool     `json:"valid"`
	Score          int      `json:"score"`
	Errors         []string `json:"errors"`
	Warnings       []string `json:"warnings"`
	SignatureValid *bool    `json:"signature_valid,omitempty"`
	IssueCodes     []string `json:"issue_codes"`
}

type policyResult struct {
	Allow bool `json:"allow"`
	Deny  []struct {
		Code    string `json:"code"`
		Message string `json:"message,omitempty"`
	} `json:"deny"`
}

func NewEngineFromBundlePath(ctx context.Context, bundlePath, bundleID string) (*Engine, error) {
	bundleHash, err := ComputeBundleHashFromPath(bundlePath)
	if err != nil {
		return nil, err
	}

	capabilities := ast.CapabilitiesForThisVersion()
	capabilities.Builtins = filterBuiltins(capabilities.Builtins)
	compiler := ast.NewCompiler().WithCapabilities(capabilities)

	prepared, err := rego.New(
		rego.Query(defaultQuery),
		rego.Compiler(compiler),
		rego.StrictBuiltinErrors(true),
		rego.Load([]string{bundlePath}, nil),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	if err := assertNoForbiddenBuiltins(compiler); err != nil {
		return nil, err
	}
	return &Engine{
		query:      prepared,
		bundleID:   bundleID,
		bundleHash: bundleHash,
	}, nil
}

func (e *Engine) BundleHash() string {
	return e.bundleHash
}

func (e *Engine) Evaluate(ctx context.Context, report domain.ValidationReport) (domain.PolicyDecision, error) {
	if e == nil {
		return domain.PolicyDecision{}, errors.New("policy engine is nil")
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(buildInput(report)))
	if err != nil {
		return domain.PolicyDecision{}, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.PolicyDecision{}, errors.New("empty policy result")
	}
	result, err := decodeResult(results[0].Expressions[0].Value)
	if err != nil {
		return domain.PolicyDecision{}, err
	}
	decision := domain.PolicyDecision{
		Allow:      result.Allow,
		BundleID:   e.bundleID,
		BundleHash: e.bundleHash,
	}
	for _, deny := range result.Deny {
		if deny.Code != "" {
			decision.DenyCodes = append(decision.DenyCodes, deny.Code)
		}
	}
	sort.Strings(decision.DenyCodes)
	return decision, nil
}

func buildInput(report domain.ValidationReport) policyInput {
	input := policyInput{
		Valid:          report.Valid,
		Score:          report.Score,
		Errors:         report.Errors,
		Warnings:       report.Warnings,
		SignatureValid: report.SignatureValid,
		IssueCodes:     []string{},
	}
	if report.SignatureDiagnostics != nil {
		for _, issue := range report.SignatureDiagnostics.DetectedIssues {
			input.IssueCodes = append(input.IssueCodes, issue.Code)
		}
		sort.Strings(input.IssueCodes)
	}
	return input
}

func assertNoForbiddenBuiltins(compiler *ast.Compiler) error {
	if compiler == nil {
		return errors.New("policy compiler is nil")
	}
	forbidden := make(map[string]struct{})
	for _, module := range compiler.Modules {
		ast.WalkTerms(module, func(term *ast.Term) bool {
			call, ok := term.Value.(ast.Call)
			if !ok || len(call) == 0 || call[0] == nil {
				return false
			}
			name := call[0].Value.String()
			if _, ok := ast.BuiltinMap[name]; !ok {
				return false
			}
			if _, ok := allowedBuiltins[name]; ok {
				return false
			}
			forbidden[name] = struct{}{}
			return false
		})
	}
	if len(forbidden) == 0 {
		return nil
	}
	names := make([]string, 0, len(forbidden))
	for name := range forbidden {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("forbidden builtins: %s", strings.Join(names, ", "))
}

func decodeResult(value any) (policyResult, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return policyResult{}, err
	}
	var result policyResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return policyResult{}, err
	}
	return result, nil
}
