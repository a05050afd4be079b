package requestidlint_test

import (
	"testing"

	"github.com/flyingrobots/creator-scout/tools/requestidlint"
	"golang.org/x/tools/go/analysis/analysistest"
)

func TestAnalyzer(t *testing.T) {
	analysistest.Run(t, analysistest.TestData(), requestidlint.Analyzer, "internal/admission/good", "internal/admission/bad")
}
