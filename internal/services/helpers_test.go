package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tablerank/tablerank/internal/corpus"
	"github.com/tablerank/tablerank/internal/llm"
)

// testStore loads a small Bangalore corpus with one-dimensional
// embeddings chosen so semantic similarity is easy to reason about.
func testStore(t *testing.T) *corpus.Store {
	t.Helper()
	dir := t.TempDir()

	csv := "id,name,address,city,locality,price_bucket,avg_cost_for_two,avg_rating,cuisines\n" +
		"r1,Truffles,St Marks Rd,Bangalore,Koramangala,$$,900,4.6,\"Burgers, Continental\"\n" +
		"r2,Meghana Foods,Residency Rd,Bangalore,Koramangala,$$,800,4.4,\"Biryani, Andhra\"\n" +
		"r3,Carnatic Cafe,MG Rd,Bangalore,Koramangala,$,300,4.1,\"South Indian\"\n" +
		"r4,Burma Burma,Lavelle Rd,Bangalore,Indiranagar,$$$,1500,4.5,\"Burmese, Asian\"\n"
	embeddings := "[1.0, 0.0]\n[0.0, 1.0]\n[0.7071, 0.7071]\n[-1.0, 0.0]\n"

	csvPath := filepath.Join(dir, "restaurants.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(csv), 0o644))
	embPath := filepath.Join(dir, "embeddings.jsonl")
	require.NoError(t, os.WriteFile(embPath, []byte(embeddings), 0o644))

	store, err := corpus.Load(csvPath, embPath, testLogger())
	require.NoError(t, err)
	return store
}

// fakeEmbedder returns a fixed vector, or an error when set.
type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) Dimension() int {
	return len(f.vector)
}

// fakeReasoner returns a canned ranking, or an error when set.
type fakeReasoner struct {
	ranked []llm.RankedCandidate
	err    error
	calls  int
}

func (f *fakeReasoner) RankAndExplain(ctx context.Context, prefs llm.PreferenceSummary, candidates []llm.CandidateSummary) ([]llm.RankedCandidate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.ranked, nil
}

var errReasonerDown = fmt.Errorf("reasoning service unavailable")
