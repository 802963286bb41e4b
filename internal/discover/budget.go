// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discover

// budget tracks one subtopic's evaluation spend: how many documents
// were judged, how many cleared the relevance threshold, and which
// identifiers already consumed an evaluation.
type budget struct {
	maxEvaluate int
	minTarget   int
	threshold   int

	evaluated int
	relevant  int
	seen      map[string]bool
}

func newBudget(maxEvaluate, minTarget, threshold int) *budget {
	return &budget{
		maxEvaluate: maxEvaluate,
		minTarget:   minTarget,
		threshold:   threshold,
		seen:        make(map[string]bool),
	}
}

// shouldContinue reports whether another document may be evaluated. The
// loop checks it before every candidate and stops the moment it turns
// false.
func (b *budget) shouldContinue() bool {
	return b.evaluated < b.maxEvaluate && b.relevant < b.minTarget
}

// processed reports whether the document already consumed an
// evaluation; re-encountering one is a no-op, not a re-evaluation.
func (b *budget) processed(docID string) bool {
	return b.seen[docID]
}

// record counts one evaluation verdict. Recording the same document
// twice has no effect.
func (b *budget) record(docID string, score int) {
	if b.seen[docID] {
		return
	}
	b.seen[docID] = true
	b.evaluated++
	if score >= b.threshold {
		b.relevant++
	}
}
