package hashing

import (
	"context"
	"math"
	"slices"
	"testing"
)

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestEmbedIsDeterministicAndNormalised(t *testing.T) {
	e := New(64)
	vectors, err := e.Embed(context.Background(), []string{"The sky is blue.", "The sky is blue."})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 64 {
		t.Fatalf("unexpected shape: %d x %d", len(vectors), len(vectors[0]))
	}
	if !slices.Equal(vectors[0], vectors[1]) {
		t.Fatalf("same text produced different vectors")
	}
	if math.Abs(norm(vectors[0])-1) > 1e-5 {
		t.Fatalf("expected unit vector, norm=%v", norm(vectors[0]))
	}

	again, _ := New(64).EmbedQuery(context.Background(), "The sky is blue.")
	if !slices.Equal(again, vectors[0]) {
		t.Fatalf("query embedding differs from document embedding")
	}
}

func TestEmbedRanksOverlappingTextCloser(t *testing.T) {
	e := New(DefaultDimension)
	ctx := context.Background()
	query, _ := e.EmbedQuery(ctx, "What colour is the sky?")
	sky, _ := e.EmbedQuery(ctx, "The sky is blue on a clear day.")
	plants, _ := e.EmbedQuery(ctx, "Photosynthesis converts light into chemical energy.")

	if dot(query, sky) <= dot(query, plants) {
		t.Fatalf("expected the sky sentence to be closer: %v vs %v", dot(query, sky), dot(query, plants))
	}
}

func TestEmbedSharedTermsNeverCancel(t *testing.T) {
	ctx := context.Background()
	for _, dimension := range []int{8, 64, 384, DefaultDimension} {
		e := New(dimension)
		query, _ := e.EmbedQuery(ctx, "What colour is the sky?")
		doc, _ := e.EmbedQuery(ctx, "The sky is blue on a clear day.")
		for i, v := range doc {
			if v < 0 {
				t.Fatalf("dimension %d: negative weight %v at %d", dimension, v, i)
			}
		}
		if dot(query, doc) <= 0 {
			t.Fatalf("dimension %d: shared term lost, dot=%v", dimension, dot(query, doc))
		}
	}
}

func TestEmbedStopwordsOnlyYieldsZeroVector(t *testing.T) {
	vec, _ := New(16).EmbedQuery(context.Background(), "the and of is")
	if norm(vec) != 0 {
		t.Fatalf("expected zero vector, got norm %v", norm(vec))
	}
}

func TestNewDefaultsDimension(t *testing.T) {
	if New(0).Dimension() != DefaultDimension {
		t.Fatalf("expected default dimension")
	}
}
