package filter

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/intake-guard/internal/apperr"
	"github.com/mikey/intake-guard/internal/core"
	"github.com/mikey/intake-guard/internal/utils"
)

// CliClientID identifies CLI runs to the rate limiter
const CliClientID = "cli"

// CliFilter runs one text through the classification gateway and prints the verdict
type CliFilter struct {
	gateway *core.Gateway
	logger  *zap.Logger
	out     io.Writer
	verbose bool
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(gateway *core.Gateway, logger *zap.Logger, out io.Writer, verbose bool) *CliFilter {
	return &CliFilter{
		gateway: gateway,
		logger:  logger,
		out:     out,
		verbose: verbose,
	}
}

// ProcessText classifies text and displays the results. Rejections are printed
// and returned.
func (f *CliFilter) ProcessText(ctx context.Context, text string) (core.IntentResult, error) {
	f.logger.Debug("Processing text", zap.Int("length", len(text)))

	fmt.Fprintf(f.out, "\n=== Input Summary ===\n")
	fmt.Fprintf(f.out, "Length: %d characters\n", len([]rune(text)))
	if f.verbose {
		fmt.Fprintf(f.out, "\nPreview:\n%s\n", utils.TruncateRunes(text, 200))
	}

	fmt.Fprintf(f.out, "\n=== Analysis ===\n")
	fmt.Fprintf(f.out, "LLM configured: %t\n", f.gateway.LLMConfigured())

	start := time.Now()
	result, err := f.gateway.ClassifyIntent(ctx, core.Client{ID: CliClientID, Secure: true}, map[string]any{
		core.FieldUserInput: text,
	})
	duration := time.Since(start)

	if err != nil {
		wire := apperr.WireFrom(err)
		fmt.Fprintf(f.out, "\n=== Rejected ===\n")
		fmt.Fprintf(f.out, "Status: %d\n", apperr.HTTPStatus(err))
		fmt.Fprintf(f.out, "Error: %s\n", wire.Error)
		fmt.Fprintf(f.out, "Message: %s\n", wire.Message)
		fmt.Fprintf(f.out, "Processing time: %v\n", duration)
		return core.IntentResult{}, err
	}

	fmt.Fprintf(f.out, "\n=== Results ===\n")
	fmt.Fprintf(f.out, "Mission: %s\n", result.Mission)
	fmt.Fprintf(f.out, "Confidence: %.2f\n", result.Confidence)
	fmt.Fprintf(f.out, "Reasoning: %s\n", result.Reasoning)
	fmt.Fprintf(f.out, "Source: %s\n", result.Source)

	keys := make([]string, 0, len(result.Extracted))
	for k := range result.Extracted {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(f.out, "Extracted %s: %s\n", k, result.Extracted[k])
	}
	fmt.Fprintf(f.out, "Processing time: %v\n", duration)

	return result, nil
}
