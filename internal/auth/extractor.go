package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"aws-examples-api/internal/observability/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ExtractorOptions configures an Extractor
type ExtractorOptions struct {
	// VerifySignature enables ES256 verification. When false the payload is
	// trusted as-is, which is only sound when the ALB is the sole ingress.
	VerifySignature bool
	// ExpectedSigner, when set, must equal the "signer" header (the ALB ARN).
	ExpectedSigner string
	ClockSkew      time.Duration
	// Keys is required when VerifySignature is true.
	Keys KeyProvider
	// Outcomes counts results by outcome and reason; optional.
	Outcomes metric.Int64Counter
}

// Extractor turns the ALB x-amzn-oidc-data header into claims. It never
// returns an error: every failure yields an empty-claims Result.
type Extractor struct {
	validator      *ES256Validator
	expectedSigner string
	outcomes       metric.Int64Counter
	log            *logger.Logger
}

// NewExtractor creates an Extractor
func NewExtractor(log *logger.Logger, opts ExtractorOptions) (*Extractor, error) {
	e := &Extractor{
		expectedSigner: opts.ExpectedSigner,
		outcomes:       opts.Outcomes,
		log:            log,
	}

	if opts.VerifySignature {
		if opts.Keys == nil {
			return nil, fmt.Errorf("signature verification requires a key provider")
		}
		e.validator = NewES256Validator(opts.Keys, opts.ClockSkew)
	}

	return e, nil
}

// Verifying reports whether signatures are checked
func (e *Extractor) Verifying() bool {
	return e.validator != nil
}

// Extract decodes headerValue. An empty value is the normal unauthenticated
// case and is not logged as a failure.
func (e *Extractor) Extract(ctx context.Context, headerValue string) Result {
	if strings.TrimSpace(headerValue) == "" {
		result := anonymousResult(ReasonMissingHeader, "")
		e.record(ctx, result)
		return result
	}

	result, err := e.extract(ctx, headerValue)
	if err != nil {
		reason := reasonOf(err)
		result = anonymousResult(reason, result.KeyID)

		e.log.Warn(ctx, "forwarded identity rejected",
			logger.Module("auth"),
			logger.Action("extract_claims"),
			zap.String("auth_failure_reason", string(reason)),
			zap.String("kid", result.KeyID),
			zap.String("token_prefix", maskToken(headerValue)),
			zap.Bool("verify_signature", e.Verifying()),
			zap.Error(err),
		)
	} else {
		e.log.Debug(ctx, "forwarded identity accepted",
			logger.Module("auth"),
			logger.Action("extract_claims"),
			zap.String("kid", result.KeyID),
			zap.Bool("verified", result.Verified),
			zap.Int("claims", len(result.Claims)),
		)
	}

	e.record(ctx, result)
	return result
}

// extract returns a Result with at least KeyID set even on error
func (e *Extractor) extract(ctx context.Context, headerValue string) (Result, error) {
	token, err := TrimPadding(headerValue)
	if err != nil {
		return Result{}, err
	}

	header, claims, err := DecodeUnverified(token)
	if err != nil {
		return Result{KeyID: header.Kid}, err
	}

	if e.validator == nil {
		return Result{Claims: claims, KeyID: header.Kid}, nil
	}

	if !validKeyID(header.Kid) {
		return Result{KeyID: header.Kid}, NewAuthError(ReasonInvalidKeyID, "missing or invalid kid", nil)
	}

	if e.expectedSigner != "" && header.Signer != e.expectedSigner {
		return Result{KeyID: header.Kid}, NewAuthError(ReasonInvalidSigner, fmt.Sprintf("unexpected signer %q", header.Signer), nil)
	}

	verified, err := e.validator.Validate(ctx, headerValue, header.Kid)
	if err != nil {
		return Result{KeyID: header.Kid}, err
	}

	return Result{Claims: verified, Verified: true, KeyID: header.Kid}, nil
}

func (e *Extractor) record(ctx context.Context, result Result) {
	if e.outcomes == nil {
		return
	}
	e.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", string(result.Outcome())),
		attribute.String("reason", string(result.Reason)),
	))
}
