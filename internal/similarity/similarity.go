// Package similarity turns externally-computed embedding vectors into
// relations: pairwise cosine similarity, best-match lookup, thresholded
// clustering, temporal-guarded comparison, and weighted blending of two
// similarity signals.
//
// Every function here is pure and CPU-bound. Vectors are opaque except for
// dot products and norms; the package never inspects what the floats mean.
package similarity

import (
	"fmt"
	"math"
)

// Cosine returns the cosine similarity of two vectors: dot(a,b)/(|a|*|b|).
// A zero-length or all-zero vector on either side yields 0.0, never a
// division error. Comparing two non-empty vectors of different lengths is
// a programmer error and panics.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	if len(a) != len(b) {
		panic(fmt.Sprintf("similarity: embedding length mismatch (%d vs %d)", len(a), len(b)))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Matrix computes all-pairs cosine similarity between two ordered embedding
// sets. The result has len(rows) rows and len(cols) columns; entry [i][j]
// is the similarity of rows[i] to cols[j]. Each input vector is normalized
// once rather than per pair. Empty input on either side yields an empty
// matrix, not an error.
func Matrix(rows, cols [][]float64) [][]float64 {
	if len(rows) == 0 || len(cols) == 0 {
		return nil
	}

	normRows := normalizeAll(rows)
	normCols := normalizeAll(cols)

	out := make([][]float64, len(rows))
	for i, r := range normRows {
		out[i] = make([]float64, len(cols))
		for j, c := range normCols {
			out[i][j] = dot(r, c)
		}
	}
	return out
}

// normalizeAll returns unit-length copies of the given vectors. All-zero
// vectors stay all-zero, which makes their similarity to everything 0.
func normalizeAll(vecs [][]float64) [][]float64 {
	out := make([][]float64, len(vecs))
	for i, v := range vecs {
		norm := 0.0
		for _, x := range v {
			norm += x * x
		}
		norm = math.Sqrt(norm)
		u := make([]float64, len(v))
		if norm > 0 {
			for j, x := range v {
				u[j] = x / norm
			}
		}
		out[i] = u
	}
	return out
}

func dot(a, b []float64) float64 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("similarity: embedding length mismatch (%d vs %d)", len(a), len(b)))
	}
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// BestMatch scans candidates linearly and returns the index of the most
// similar one plus its similarity. A candidate is skipped when skip(j)
// reports true (callers use this to exclude an item's own identifier).
// Ties keep the first-encountered candidate; the scan order is never
// re-sorted, which keeps results deterministic.
//
// Returns index -1 when no candidate was eligible.
func BestMatch(subject []float64, candidates [][]float64, skip func(j int) bool) (int, float64) {
	best := -1
	maxSim := 0.0
	for j, c := range candidates {
		if skip != nil && skip(j) {
			continue
		}
		if sim := Cosine(subject, c); sim > maxSim {
			maxSim = sim
			best = j
		}
	}
	return best, maxSim
}

// GuardedBestMatch is BestMatch with two preconditions per candidate: the
// similarity must meet threshold, and an externally supplied ordering
// predicate must hold (e.g. "candidate was resolved strictly after the
// subject was created"). Used by staleness detection so a PR merged before
// the subject existed can never be reported as superseding it.
func GuardedBestMatch(subject []float64, candidates [][]float64, threshold float64, eligible func(j int) bool) (int, float64) {
	best := -1
	maxSim := 0.0
	for j, c := range candidates {
		sim := Cosine(subject, c)
		if sim < threshold {
			continue
		}
		if eligible != nil && !eligible(j) {
			continue
		}
		if sim > maxSim {
			maxSim = sim
			best = j
		}
	}
	return best, maxSim
}

// Blend combines two similarity signals with a caller-supplied weight:
// weightA*scoreA + (1-weightA)*scoreB. The weight is validated at
// configuration-construction time to lie in [0,1]; Blend does not clamp.
func Blend(scoreA, weightA, scoreB float64) float64 {
	return weightA*scoreA + (1-weightA)*scoreB
}

// ClusterNode is one member of a connected component found by Cluster.
// Similarity records the strongest edge incident to the node at the time
// it was visited. The traversal root carries Similarity 0.0 with Anchor
// set; that is a marker for "this node seeded the cluster", not a missing
// value.
type ClusterNode struct {
	Index      int
	Similarity float64
	Anchor     bool
}

// Cluster groups embeddings into connected components under a similarity
// threshold: an edge exists between i and j iff Cosine(i,j) >= threshold.
// Components are discovered by breadth-first traversal in input order and
// singleton components are discarded.
//
// The adjacency build is O(n^2) in the number of embeddings; callers are
// expected to pre-filter or shard above a few thousand items.
func Cluster(embeddings [][]float64, threshold float64) [][]ClusterNode {
	n := len(embeddings)

	type edge struct {
		to  int
		sim float64
	}
	adj := make(map[int][]edge)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if sim := Cosine(embeddings[i], embeddings[j]); sim >= threshold {
				adj[i] = append(adj[i], edge{j, sim})
				adj[j] = append(adj[j], edge{i, sim})
			}
		}
	}

	visited := make(map[int]bool, n)
	var clusters [][]ClusterNode

	for start := 0; start < n; start++ {
		if visited[start] || len(adj[start]) == 0 {
			continue
		}
		var members []ClusterNode
		queue := []int{start}
		visited[start] = true
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]

			maxSim := 0.0
			for _, e := range adj[node] {
				if e.sim > maxSim {
					maxSim = e.sim
				}
				if !visited[e.to] {
					visited[e.to] = true
					queue = append(queue, e.to)
				}
			}
			if node == start {
				members = append(members, ClusterNode{Index: node, Anchor: true})
			} else {
				members = append(members, ClusterNode{Index: node, Similarity: maxSim})
			}
		}
		if len(members) >= 2 {
			clusters = append(clusters, members)
		}
	}
	return clusters
}
