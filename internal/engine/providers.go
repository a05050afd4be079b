package engine

import (
	"github.com/flyingrobots/creator-scout/internal/providers/embedding"
	"github.com/flyingrobots/creator-scout/internal/providers/enrichment"
	"github.com/flyingrobots/creator-scout/internal/providers/scoring"
	"github.com/flyingrobots/creator-scout/internal/providers/vectorindex"
)

// Providers bundles every external collaborator the engine drives.
// EmbeddingSecondary may be nil, in which case embedding failures
// propagate as fatal instead of falling back.
type Providers struct {
	EmbeddingPrimary   embedding.Client
	EmbeddingSecondary embedding.Client
	VectorIndex        vectorindex.Client
	Enrichment         enrichment.Client
	Scoring            scoring.Client

	VectorCollection   string
	EnrichmentDatasets map[string]string // platform -> dataset id
}
