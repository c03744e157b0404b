// Package decision turns a URL, a settings snapshot and page text into an
// archive verdict with the full trail of sub-results behind it.
//
// The same Engine serves the live auto-archive path and the diagnostic
// path. The live path only evaluates pages the scan gate already accepted;
// the diagnostic path evaluates any page, which is the only way to observe
// indicators overriding the gate.
package decision

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
	"github.com/JakeFAU/page-archiver/internal/gate"
	"github.com/JakeFAU/page-archiver/internal/indicator"
)

// Verdict reasons.
const (
	ReasonHomepage     = "Homepage exclusion"
	ReasonNoIndicators = "No indicators found in page content"
	reasonFoundPrefix  = "Found indicators: "
	reasonOverride     = " (indicators override normal scanning conditions)"
)

// Basis names the rule that settled v: homepage, override, indicators or
// none. Used as a low-cardinality metrics label.
func Basis(v autoarchive.Verdict) string {
	switch {
	case v.IsHomepage:
		return "homepage"
	case v.WouldArchive && !v.NormalScanWouldOccur:
		return "override"
	case v.WouldArchive:
		return "indicators"
	default:
		return "none"
	}
}

// Engine evaluates scan decisions. It holds no per-evaluation state and is
// safe for concurrent use.
type Engine struct {
	logger *zap.Logger
}

// NewEngine builds an Engine that logs diagnostics to logger.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Evaluate compiles settings and evaluates rawURL and pageText against them.
func (e *Engine) Evaluate(rawURL string, settings autoarchive.Settings, pageText string) (autoarchive.Verdict, error) {
	return e.EvaluateRules(rawURL, settings.Compile(), pageText)
}

// EvaluateRules produces the verdict for rawURL. The indicator scan always
// runs so the verdict reports what is on the page even when the gate or the
// homepage exclusion decides the outcome. A URL that cannot be parsed yields
// autoarchive.ErrMalformedURL instead of a verdict.
func (e *Engine) EvaluateRules(rawURL string, rules autoarchive.Rules, pageText string) (autoarchive.Verdict, error) {
	e.logInvalidPatterns(rules)

	assessment := gate.Assess(rawURL, rules)
	if assessment.ParseErr != nil {
		return autoarchive.Verdict{}, fmt.Errorf("%w: %w", autoarchive.ErrMalformedURL, assessment.ParseErr)
	}

	verdict := autoarchive.Verdict{
		URL:                   rawURL,
		IsHomepage:            assessment.IsHomepage,
		GlobalScanningEnabled: assessment.GlobalScanningEnabled,
		PathMatches:           assessment.PathMatches,
		NormalScanWouldOccur:  assessment.ShouldScan(),
		FoundIndicators:       indicator.ScanSet(rules.Indicators, pageText),
	}

	switch {
	case verdict.IsHomepage:
		verdict.Reason = ReasonHomepage
	case len(verdict.FoundIndicators) > 0:
		verdict.WouldArchive = true
		verdict.Reason = reasonFoundPrefix + strings.Join(verdict.FoundIndicators, ", ")
		if !verdict.NormalScanWouldOccur {
			verdict.Reason += reasonOverride
		}
	default:
		verdict.Reason = ReasonNoIndicators
	}

	e.logVerdict(rules.DebugMode, verdict, assessment.MatchedPattern)
	return verdict, nil
}

func (e *Engine) logInvalidPatterns(rules autoarchive.Rules) {
	if !e.logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	for _, p := range rules.Indicators.Invalid() {
		e.logger.Debug("indicator regex invalid; matching literally", zap.String("pattern", p.Raw), zap.Error(p.Err))
	}
	for _, p := range rules.PathPatterns.Invalid() {
		e.logger.Debug("path regex invalid; matching literally", zap.String("pattern", p.Raw), zap.Error(p.Err))
	}
}

func (e *Engine) logVerdict(debug bool, v autoarchive.Verdict, matchedPattern string) {
	level := zapcore.DebugLevel
	if debug {
		level = zapcore.InfoLevel
	}
	ce := e.logger.Check(level, "scan decision")
	if ce == nil {
		return
	}
	ce.Write(
		zap.String("url", v.URL),
		zap.Bool("would_archive", v.WouldArchive),
		zap.String("reason", v.Reason),
		zap.Strings("found_indicators", v.FoundIndicators),
		zap.Bool("normal_scan_would_occur", v.NormalScanWouldOccur),
		zap.Bool("is_homepage", v.IsHomepage),
		zap.Bool("global_scanning", v.GlobalScanningEnabled),
		zap.Bool("path_matches", v.PathMatches),
		zap.String("matched_path_pattern", matchedPattern),
	)
}
