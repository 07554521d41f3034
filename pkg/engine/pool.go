package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getmockd/intercept/internal/id"
	"github.com/getmockd/intercept/internal/matching"
	"github.com/getmockd/intercept/pkg/logging"
	"github.com/getmockd/intercept/pkg/mock"
	"github.com/getmockd/intercept/pkg/requestlog"
	"github.com/getmockd/intercept/pkg/template"
)

// entry is a definition held by a pool together with its consumption state.
type entry struct {
	def      *mock.Definition
	matcher  *matching.Matcher
	provider string
	index    int

	consumed int
	// firstSeq is the request that first consumed the definition, -1 if none.
	firstSeq int64
}

func (e *entry) exhausted() bool {
	return e.def.Times > 0 && e.consumed >= e.def.Times
}

// Pool is the ordered set of definitions active for one test.
type Pool struct {
	mu      sync.Mutex
	entries []*entry
	seq     int64

	match         matching.Options
	log           *slog.Logger
	journal       requestlog.Store
	templates     *template.Engine
	nearMissLimit int
}

// Build concatenates the providers' definitions in provider order, then
// supply order. Every definition is validated and its matcher compiled;
// all problems are reported together, each as a *MalformedDefinitionError.
//
// Definitions without an ID get "<provider>-<n>", n counting from 1.
func Build(providers []mock.Provider, opts ...Option) (*Pool, error) {
	p := &Pool{
		log:           logging.Nop(),
		templates:     template.New(),
		nearMissLimit: DefaultNearMissLimit,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.journal == nil {
		p.journal = requestlog.NewMemoryStore(requestlog.DefaultCapacity)
	}

	var errs []error
	seen := make(map[string]bool)
	for pi, provider := range providers {
		if provider == nil {
			errs = append(errs, &MalformedDefinitionError{
				Provider: fmt.Sprintf("provider#%d", pi),
				Cause:    errors.New("provider is nil"),
			})
			continue
		}
		name := provider.Name()
		for i, supplied := range provider.Supply() {
			e, err := p.compile(name, i, supplied)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if seen[e.def.ID] {
				errs = append(errs, &MalformedDefinitionError{
					Provider: name, Index: i, ID: e.def.ID,
					Cause: fmt.Errorf("duplicate definition id %q", e.def.ID),
				})
				continue
			}
			seen[e.def.ID] = true
			e.index = len(p.entries)
			p.entries = append(p.entries, e)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	p.log.Debug("pool built", "providers", len(providers), "definitions", len(p.entries))
	return p, nil
}

func (p *Pool) compile(provider string, i int, supplied *mock.Definition) (*entry, error) {
	malformed := func(id string, cause error) error {
		return &MalformedDefinitionError{Provider: provider, Index: i, ID: id, Cause: cause}
	}
	if supplied == nil {
		return nil, malformed("", errors.New("definition is nil"))
	}
	if err := supplied.Validate(); err != nil {
		return nil, malformed(supplied.ID, err)
	}
	def := supplied.Clone()
	m, err := matching.Compile(def.Matcher)
	if err != nil {
		return nil, malformed(def.ID, err)
	}
	if def.ID == "" {
		if provider != "" {
			def.ID = fmt.Sprintf("%s-%d", provider, i+1)
		} else {
			def.ID = id.Short()
		}
	}
	return &entry{def: def, matcher: m, provider: provider, firstSeq: -1}, nil
}

// Configure applies options after Build, e.g. when a scope opens with
// stricter matching. Configure before sending requests; the journal and
// logger are not swapped atomically with in-flight resolutions.
func (p *Pool) Configure(opts ...Option) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, opt := range opts {
		opt(p)
	}
}

// Len returns the number of definitions.
func (p *Pool) Len() int {
	return len(p.entries)
}

// Definitions returns the definitions in registration order.
func (p *Pool) Definitions() []*mock.Definition {
	out := make([]*mock.Definition, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.def
	}
	return out
}

// Journal returns the store recording every resolved request.
func (p *Pool) Journal() requestlog.Store {
	return p.journal
}

// Resolve returns the response of the first eligible definition accepting
// r and counts the use. It fails with a *NoMatchError when none does, or
// with the producer's error when the winner cannot build its response.
func (p *Pool) Resolve(ctx context.Context, r *mock.Request) (*mock.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	p.mu.Lock()
	seq := p.seq
	p.seq++
	match := p.match
	winner, res := p.find(r)
	if winner == nil {
		consumed := p.consumedCounts()
		p.mu.Unlock()
		return nil, p.noMatch(r, seq, consumed, match, start)
	}
	winner.consumed++
	if winner.firstSeq < 0 {
		winner.firstSeq = seq
	}
	consumed := winner.consumed
	p.mu.Unlock()

	def := winner.def
	p.log.Debug("request matched",
		"definition", def.ID,
		"method", r.Method,
		"path", r.Path,
		"consumed", consumed,
	)
	if def.Dump {
		p.log.Info("request dump", "definition", def.DisplayName(), "request", r.Dump())
	}

	resp, err := p.produce(def, r, res)
	journalEntry := p.newJournalEntry(r, seq, start)
	journalEntry.MatchedID = def.ID
	journalEntry.MatchedName = def.Name
	if err != nil {
		err = fmt.Errorf("definition %s: producing response: %w", def.DisplayName(), err)
		journalEntry.Outcome = requestlog.OutcomeError
		journalEntry.Error = err.Error()
		p.journal.Log(journalEntry)
		p.log.Warn("responder failed", "definition", def.ID, "error", err)
		return nil, err
	}
	journalEntry.Outcome = requestlog.OutcomeMatched
	journalEntry.ResponseStatus = resp.StatusCode
	p.journal.Log(journalEntry)
	return resp, nil
}

// find returns the first eligible entry accepting r. Callers hold p.mu.
func (p *Pool) find(r *mock.Request) (*entry, matching.Result) {
	for _, e := range p.entries {
		if e.exhausted() {
			continue
		}
		if res := e.matcher.Match(r, p.match); res.Matched {
			return e, res
		}
	}
	return nil, matching.Result{}
}

// consumedCounts snapshots the counters. Callers hold p.mu.
func (p *Pool) consumedCounts() []int {
	counts := make([]int, len(p.entries))
	for i, e := range p.entries {
		counts[i] = e.consumed
	}
	return counts
}

func (p *Pool) noMatch(r *mock.Request, seq int64, consumed []int, match matching.Options, start time.Time) *NoMatchError {
	nearMisses := p.nearMisses(r, consumed, match)
	nm := &NoMatchError{Request: r, NearMisses: nearMisses, Seq: seq}

	journalEntry := p.newJournalEntry(r, seq, start)
	journalEntry.Outcome = requestlog.OutcomeUnmatched
	journalEntry.NearMisses = nearMissInfos(nearMisses)
	p.journal.Log(journalEntry)
	nm.EntryID = journalEntry.ID

	attrs := []any{"method", r.Method, "host", r.Host, "path", r.Path, "nearMisses", len(nearMisses)}
	if len(nearMisses) > 0 {
		attrs = append(attrs, "closest", nearMisses[0].DefinitionID, "reason", nearMisses[0].Reason)
	}
	p.log.Warn("no mock matched", attrs...)
	return nm
}

// nearMisses breaks down every definition against r. Entries and matchers
// are immutable after Build, so this runs without the lock on a snapshot of
// the counters and options.
func (p *Pool) nearMisses(r *mock.Request, consumed []int, match matching.Options) []*matching.NearMiss {
	candidates := make([]*matching.NearMiss, 0, len(p.entries))
	for i, e := range p.entries {
		nm := e.matcher.Breakdown(r, match)
		nm.DefinitionID = e.def.ID
		nm.DefinitionName = e.def.Name
		nm.Index = e.index
		nm.Description = e.def.Describe()
		if e.def.Times > 0 && consumed[i] >= e.def.Times {
			nm.AddField(matching.FieldResult{
				Field:    "times",
				MaxScore: 1,
				Expected: e.def.Times,
				Actual:   consumed[i],
				Reason:   fmt.Sprintf("exhausted after %d use(s)", consumed[i]),
			})
		}
		candidates = append(candidates, nm)
	}
	return matching.RankNearMisses(candidates, p.nearMissLimit)
}

// Explanation is the outcome of a dry-run resolution.
type Explanation struct {
	// Definition is the winner, nil when nothing matched.
	Definition *mock.Definition
	PathParams map[string]string
	NearMisses []*matching.NearMiss
}

// Explain reports which definition would answer r without consuming it
// and without recording the request.
func (p *Pool) Explain(r *mock.Request) *Explanation {
	p.mu.Lock()
	winner, res := p.find(r)
	consumed := p.consumedCounts()
	match := p.match
	p.mu.Unlock()

	if winner != nil {
		return &Explanation{Definition: winner.def, PathParams: res.PathParams}
	}
	return &Explanation{NearMisses: p.nearMisses(r, consumed, match)}
}

// MarkForwarded amends the journal entry of an unmatched request that the
// caller forwarded to the real network.
func (p *Pool) MarkForwarded(nm *NoMatchError, status int, err error) {
	if nm == nil || nm.EntryID == "" {
		return
	}
	updater, ok := p.journal.(requestlog.Updater)
	if !ok {
		return
	}
	updater.Update(nm.EntryID, func(e *requestlog.Entry) {
		e.Outcome = requestlog.OutcomePassthrough
		e.ResponseStatus = status
		if err != nil {
			e.Error = err.Error()
		}
	})
}

// Unmatched returns the requests no definition accepted, oldest first.
// Forwarded requests are included.
func (p *Pool) Unmatched() []*requestlog.Entry {
	var out []*requestlog.Entry
	for _, e := range p.journal.List(nil) {
		if e.Outcome == requestlog.OutcomeUnmatched || e.Outcome == requestlog.OutcomePassthrough {
			out = append(out, e)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// AssertFullyConsumed returns an *UnconsumedMocksError naming every
// limited or required definition that was never consumed.
func (p *Pool) AssertFullyConsumed() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var missing []*mock.Definition
	for _, e := range p.entries {
		if e.consumed == 0 && e.def.MustBeConsumed() {
			missing = append(missing, e.def)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &UnconsumedMocksError{Definitions: missing}
}

// AssertOrdered checks that consumed definitions were first used in
// registration order. A definition first consumed before an
// earlier-registered one is a violation.
func (p *Pool) AssertOrdered() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var violations []OrderViolation
	var latest *entry
	for _, e := range p.entries {
		if e.firstSeq < 0 {
			continue
		}
		if latest != nil && e.firstSeq < latest.firstSeq {
			violations = append(violations, OrderViolation{
				DefinitionID: e.def.ID,
				Index:        e.index,
				Seq:          e.firstSeq,
				After:        latest.def.ID,
				AfterSeq:     latest.firstSeq,
			})
			continue
		}
		latest = e
	}
	if len(violations) == 0 {
		return nil
	}
	return &OutOfOrderError{Violations: violations}
}

// Reset clears every counter, the template sequences and the journal.
// Definitions are kept.
func (p *Pool) Reset() {
	p.mu.Lock()
	for _, e := range p.entries {
		e.consumed = 0
		e.firstSeq = -1
	}
	p.seq = 0
	p.mu.Unlock()

	p.templates.Sequences().Clear()
	p.journal.Clear()
	p.log.Debug("pool reset", "definitions", len(p.entries))
}

func (p *Pool) newJournalEntry(r *mock.Request, seq int64, start time.Time) *requestlog.Entry {
	return &requestlog.Entry{
		Seq:         seq,
		Timestamp:   start,
		Method:      r.Method,
		Host:        r.Host,
		Path:        r.Path,
		QueryString: r.Query.Encode(),
		Headers:     r.Header.Clone(),
		Body:        requestlog.TruncateBody(r.Body),
		BodySize:    len(r.Body),
		DurationMs:  int(time.Since(start).Milliseconds()),
	}
}

func nearMissInfos(nearMisses []*matching.NearMiss) []requestlog.NearMissInfo {
	if len(nearMisses) == 0 {
		return nil
	}
	out := make([]requestlog.NearMissInfo, len(nearMisses))
	for i, nm := range nearMisses {
		out[i] = requestlog.NearMissInfo{
			DefinitionID:    nm.DefinitionID,
			DefinitionName:  nm.DefinitionName,
			Satisfied:       nm.Satisfied,
			Conditions:      nm.Conditions,
			MatchPercentage: nm.MatchPercentage,
			Reason:          nm.Reason,
		}
	}
	return out
}
