package adjudicate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/vectordb"
)

// Evidence is one policy's cached retrieval result: the matched documents
// and their flattened text.
type Evidence struct {
	Matches []vectordb.SearchResult
	Chunks  []string
}

// Retriever performs cached, time-bounded semantic search over policy
// documents. Each policy number is searched at most once per execution;
// the cache is additive-only and entries are never invalidated, so a repeat
// adjudication for the same policy reuses the first result.
type Retriever struct {
	store   vectordb.VectorStore
	topK    int
	timeout time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]*Evidence
}

// NewRetriever creates a Retriever. topK defaults to 5 and timeout to 15s
// when non-positive.
func NewRetriever(store vectordb.VectorStore, topK int, timeout time.Duration) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Retriever{
		store:   store,
		topK:    topK,
		timeout: timeout,
		logger:  slog.Default().With("component", "retriever"),
		cache:   make(map[string]*Evidence),
	}
}

// Retrieve returns the evidence for a policy, searching the document store
// on the first call and the cache afterwards. Zero matches on the first
// lookup is fatal (ErrPolicyNotFound). A search that exceeds the timeout is
// cancelled and degrades to empty evidence; the empty result is not cached,
// so a later call may still succeed.
func (r *Retriever) Retrieve(ctx context.Context, policyNumber, patientName, invoiceSummary string) (*Evidence, error) {
	r.mu.Lock()
	if cached, ok := r.cache[policyNumber]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	searchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := &vectordb.SearchFilter{
		PolicyNumber: policyNumber,
		CustomerID:   strings.ToUpper(strings.TrimSpace(patientName)),
	}

	matches, err := r.store.Search(searchCtx, invoiceSummary, r.topK, filter)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(searchCtx.Err(), context.DeadlineExceeded) {
			// The in-flight search was cancelled; if it finishes anyway its
			// result is discarded.
			r.logger.Warn("evidence search timed out", "policy", policyNumber, "timeout", r.timeout)
			return &Evidence{}, nil
		}
		return nil, fmt.Errorf("error while fetching the policy data: %w", err)
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("policy number %s: %w", policyNumber, ErrPolicyNotFound)
	}

	chunks := make([]string, len(matches))
	for i, m := range matches {
		chunks[i] = m.Document.Content
	}
	ev := &Evidence{Matches: matches, Chunks: chunks}

	// Insert-if-absent: a concurrent first lookup may have won the race;
	// keep whichever entry landed first.
	r.mu.Lock()
	if existing, ok := r.cache[policyNumber]; ok {
		ev = existing
	} else {
		r.cache[policyNumber] = ev
	}
	r.mu.Unlock()

	r.logger.Info("cached policy evidence", "policy", policyNumber, "chunks", len(ev.Chunks))
	return ev, nil
}
