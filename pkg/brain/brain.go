// Package brain runs user input through a five-stage reasoning pipeline and
// keeps the memory it needs between runs.
//
// The sensory stage classifies the input. The memory, logic and emotional
// stages then run concurrently, and the executive stage waits for all three
// before writing the final response. After a successful run the exchange is
// added to working memory and committed to the long-term store.
//
// Example usage:
//
//	b, err := brain.New(provider, brain.WithLongTermStore(store))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	res, err := b.Run(ctx, "What is justice?")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.FinalOutput)
package brain

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/entrhq/synapse/pkg/document"
	"github.com/entrhq/synapse/pkg/llm"
	"github.com/entrhq/synapse/pkg/logging"
	"github.com/entrhq/synapse/pkg/memory/longterm"
	"github.com/entrhq/synapse/pkg/memory/semantic"
	"github.com/entrhq/synapse/pkg/memory/working"
	"github.com/entrhq/synapse/pkg/persona"
	"github.com/entrhq/synapse/pkg/pipeline"
	"github.com/entrhq/synapse/pkg/tokens"
)

// Defaults for the retrieval limits.
const (
	DefaultRetrieveLimit = 5
	DefaultSearchTopK    = 3
)

// ConversationTag marks committed exchanges in the long-term store.
const ConversationTag = "conversation"

var (
	// ErrEmptyInput is returned by Run for blank input.
	ErrEmptyInput = errors.New("brain: empty input")

	// ErrIndexDisabled is returned by index operations when the brain was
	// built without an embedding provider.
	ErrIndexDisabled = errors.New("brain: semantic index disabled")

	// ErrUnknownPersona is returned by SelectPersona for an id the registry
	// does not hold.
	ErrUnknownPersona = errors.New("brain: unknown persona")
)

// Signal is one stage's contribution to a run.
type Signal struct {
	Name   string
	Role   string
	Output string
}

// Result is the outcome of a successful run.
type Result struct {
	RunID       string
	FinalOutput string
	// Signals holds each stage's output keyed by stage ID.
	Signals  map[string]Signal
	Memories []longterm.Entry
	Passages []string
	Duration time.Duration
	// CommitErr is set when the exchange could not be written to the
	// long-term store. The run itself still succeeded.
	CommitErr error
}

// Brain is the orchestrator. It owns its working memory and semantic index;
// the long-term store may be shared but runs against it are not coordinated
// across instances.
type Brain struct {
	reasoner  llm.Provider
	working   *working.Memory
	longTerm  *longterm.Store
	index     *semantic.Index
	loader    document.Loader
	personas  *persona.Registry
	logger    *logging.Logger
	counter   *tokens.Counter
	scheduler *pipeline.Scheduler
	graph     *pipeline.Graph

	timeout       time.Duration
	contextTurns  int
	tokenBudget   int
	retrieveLimit int
	searchTopK    int

	running atomic.Bool

	mu      sync.RWMutex
	persona *persona.Profile
}

// Option configures a Brain.
type Option func(*Brain)

// WithWorkingMemory replaces the default working memory.
func WithWorkingMemory(m *working.Memory) Option {
	return func(b *Brain) { b.working = m }
}

// WithLongTermStore sets the long-term store. Without one the brain keeps
// its long-term memory in an in-memory SQLite database.
func WithLongTermStore(s *longterm.Store) Option {
	return func(b *Brain) { b.longTerm = s }
}

// WithSemanticIndex enables the semantic index.
func WithSemanticIndex(idx *semantic.Index) Option {
	return func(b *Brain) { b.index = idx }
}

// WithLoader replaces the document loader used by LoadIndex and
// LoadPersonaDocument.
func WithLoader(l document.Loader) Option {
	return func(b *Brain) { b.loader = l }
}

// WithPersonas replaces the built-in persona registry.
func WithPersonas(r *persona.Registry) Option {
	return func(b *Brain) { b.personas = r }
}

// WithLogger sets the logger that receives stage and commit events.
func WithLogger(l *logging.Logger) Option {
	return func(b *Brain) { b.logger = l }
}

// WithTimeout bounds every run.
func WithTimeout(d time.Duration) Option {
	return func(b *Brain) { b.timeout = d }
}

// WithContextTurns sets how many recent turns the stages see.
func WithContextTurns(n int) Option {
	return func(b *Brain) { b.contextTurns = n }
}

// WithContextTokenBudget caps the conversation context at budget tokens as
// measured by counter. A budget <= 0 disables the cap.
func WithContextTokenBudget(budget int, counter *tokens.Counter) Option {
	return func(b *Brain) {
		b.tokenBudget = budget
		b.counter = counter
	}
}

// WithRetrieveLimit sets how many long-term entries the memory stage reads.
func WithRetrieveLimit(n int) Option {
	return func(b *Brain) { b.retrieveLimit = n }
}

// WithSearchTopK sets how many semantic passages the memory stage reads.
func WithSearchTopK(n int) Option {
	return func(b *Brain) { b.searchTopK = n }
}

// New creates a Brain around reasoner.
func New(reasoner llm.Provider, opts ...Option) (*Brain, error) {
	if reasoner == nil {
		return nil, fmt.Errorf("brain: a reasoning provider is required")
	}

	b := &Brain{
		reasoner:      reasoner,
		loader:        document.FileLoader{},
		contextTurns:  working.DefaultContextTurns,
		retrieveLimit: DefaultRetrieveLimit,
		searchTopK:    DefaultSearchTopK,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.working == nil {
		b.working = working.New(working.DefaultMaxTurns)
	}
	if b.personas == nil {
		b.personas = persona.Builtin()
	}
	if b.longTerm == nil {
		backend, err := longterm.NewSQLiteStore(":memory:")
		if err != nil {
			return nil, fmt.Errorf("brain: create in-memory store: %w", err)
		}
		b.longTerm = longterm.New(backend)
	}

	reg, err := b.registry()
	if err != nil {
		return nil, fmt.Errorf("brain: %w", err)
	}
	g, err := reg.Build()
	if err != nil {
		return nil, fmt.Errorf("brain: %w", err)
	}
	b.graph = g

	schedOpts := []pipeline.Option{pipeline.WithTimeout(b.timeout)}
	if b.logger != nil {
		schedOpts = append(schedOpts, pipeline.WithObserver(logging.StageLog{Logger: b.logger}))
	}
	b.scheduler = pipeline.NewScheduler(schedOpts...)

	return b, nil
}

// Run processes input through every stage.
//
// A stage failure aborts the run with a *pipeline.StageExecutionError and
// nothing is committed. Only one run may be in flight per Brain; an
// overlapping call returns pipeline.ErrRunInProgress.
func (b *Brain) Run(ctx context.Context, input string) (*Result, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}
	if !b.running.CompareAndSwap(false, true) {
		return nil, pipeline.ErrRunInProgress
	}
	defer b.running.Store(false)

	start := time.Now()
	active := b.Persona()
	in := pipeline.Outputs{
		FieldInput:        input,
		FieldConversation: b.conversation(),
	}
	if active != nil {
		in[FieldPersona] = active
	}

	res, err := b.scheduler.Run(ctx, b.graph, in)
	if err != nil {
		b.logger.Errorf("run failed: %v", err)
		return nil, err
	}

	out := &Result{
		RunID:       res.RunID,
		FinalOutput: res.State.String(FieldFinal),
		Signals:     make(map[string]Signal, len(stageInfos)),
		Duration:    time.Since(start),
	}
	for id, info := range stageInfos {
		out.Signals[id] = Signal{Name: info.name, Role: info.role, Output: res.State.String(info.output)}
	}
	out.Memories, _ = res.State.Get(FieldRawMemories).([]longterm.Entry)
	out.Passages, _ = res.State.Get(FieldPersonaPassages).([]string)

	out.CommitErr = b.commit(ctx, input, out.FinalOutput, active)
	b.logger.Infof("run %s completed in %s", out.RunID, out.Duration.Round(time.Millisecond))
	return out, nil
}

// commit records a finished exchange in both memory tiers.
func (b *Brain) commit(ctx context.Context, input, response string, active *persona.Profile) error {
	b.working.AddTurn(input, response)

	tags := []string{ConversationTag}
	if active != nil && active.ID != "" {
		tags = append(tags, "persona:"+active.ID)
	}
	if _, err := b.longTerm.AddEntry(ctx, fmt.Sprintf("User: %s\nResponse: %s", input, response), tags); err != nil {
		b.logger.Warnf("failed to commit exchange to long-term memory: %v", err)
		return err
	}
	return nil
}

func (b *Brain) conversation() string {
	return b.working.ContextWithin(b.contextTurns, b.tokenBudget, b.counter)
}

// Graph returns the stage graph.
func (b *Brain) Graph() *pipeline.Graph {
	return b.graph
}

// Model returns the reasoning model name.
func (b *Brain) Model() string {
	return b.reasoner.Model()
}

// AddTurn appends a turn to working memory.
func (b *Brain) AddTurn(user, response string) {
	b.working.AddTurn(user, response)
}

// Context returns the last n turns of working memory.
func (b *Brain) Context(n int) string {
	return b.working.Context(n)
}

// ClearWorkingMemory empties working memory.
func (b *Brain) ClearWorkingMemory() {
	b.working.Clear()
}

// LoadIndex loads the document at path and makes it the semantic index's
// data set, labelled by the file name. It returns the number of chunks.
func (b *Brain) LoadIndex(ctx context.Context, path string) (int, error) {
	if b.index == nil {
		return 0, ErrIndexDisabled
	}
	text, err := b.loader.Load(path)
	if err != nil {
		return 0, err
	}
	label := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	n, err := b.index.IndexText(ctx, text, label)
	if err != nil {
		return 0, err
	}
	b.logger.Infof("indexed %d chunks from %s", n, path)
	return n, nil
}

// LoadProfileIndex makes p's non-empty fields the semantic index's data set.
func (b *Brain) LoadProfileIndex(ctx context.Context, p *persona.Profile) (int, error) {
	if b.index == nil {
		return 0, ErrIndexDisabled
	}
	var fields []semantic.Field
	for _, f := range p.Ordered() {
		fields = append(fields, semantic.Field{Name: f.Name, Value: f.Value})
	}
	n, err := b.index.IndexProfile(ctx, fields, p.ID)
	if err != nil {
		return 0, err
	}
	b.logger.Infof("indexed %d profile fields for %s", n, p.DisplayName())
	return n, nil
}

// ClearIndex unloads the semantic index.
func (b *Brain) ClearIndex() {
	if b.index != nil {
		b.index.Clear()
	}
}

// IndexLoaded reports whether the semantic index holds a data set.
func (b *Brain) IndexLoaded() bool {
	return b.index != nil && b.index.Loaded()
}

// AddEntry appends an entry to the long-term store.
func (b *Brain) AddEntry(ctx context.Context, content string, tags []string) (longterm.Entry, error) {
	return b.longTerm.AddEntry(ctx, content, tags)
}

// Retrieve ranks long-term entries against query.
func (b *Brain) Retrieve(ctx context.Context, query string, limit int) ([]longterm.Entry, error) {
	return b.longTerm.Retrieve(ctx, query, limit)
}

// ClearLongTerm erases the long-term store.
func (b *Brain) ClearLongTerm(ctx context.Context) error {
	return b.longTerm.Clear(ctx)
}

// SetPersona makes p the active persona for subsequent runs.
func (b *Brain) SetPersona(p *persona.Profile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.persona = p
}

// SelectPersona activates a curated persona and indexes its profile.
func (b *Brain) SelectPersona(ctx context.Context, id string) (*persona.Profile, error) {
	p, ok := b.personas.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPersona, id)
	}
	if b.index != nil {
		if _, err := b.LoadProfileIndex(ctx, p); err != nil {
			return nil, err
		}
	}
	b.SetPersona(p)
	return p, nil
}

// LoadPersonaDocument extracts a persona from a biography at path, makes
// it active and indexes the full document.
func (b *Brain) LoadPersonaDocument(ctx context.Context, path string) (*persona.Profile, error) {
	text, err := b.loader.Load(path)
	if err != nil {
		return nil, err
	}

	prompt := persona.ExtractionPrompt + "\n\nText to analyze:\n" + document.Excerpt(text, document.DefaultExcerptChars)
	raw, err := b.reasoner.Invoke(ctx, "", prompt)
	if err != nil {
		return nil, fmt.Errorf("brain: extract persona: %w", err)
	}
	p := persona.ParseProfile(raw)
	if p.Name == "" {
		return nil, fmt.Errorf("brain: extract persona from %s: no NAME in response", path)
	}
	p.Source = filepath.Base(path)

	if b.index != nil {
		if _, err := b.index.IndexText(ctx, text, p.ID); err != nil {
			return nil, err
		}
	}
	b.SetPersona(p)
	b.logger.Infof("persona loaded: %s", p.Name)
	return p, nil
}

// ClearPersona deactivates the persona and unloads the semantic index.
func (b *Brain) ClearPersona() {
	b.SetPersona(nil)
	b.ClearIndex()
}

// Persona returns the active persona, or nil.
func (b *Brain) Persona() *persona.Profile {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.persona
}

// Personas returns the persona registry.
func (b *Brain) Personas() *persona.Registry {
	return b.personas
}

// Close releases the long-term store.
func (b *Brain) Close() error {
	return b.longTerm.Close()
}
