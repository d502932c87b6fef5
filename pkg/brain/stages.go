package brain

import (
	"context"
	"fmt"
	"strings"

	"github.com/entrhq/synapse/pkg/memory/longterm"
	"github.com/entrhq/synapse/pkg/persona"
	"github.com/entrhq/synapse/pkg/pipeline"
)

// Stage identifiers.
const (
	StageSensory   = "sensory"
	StageMemory    = "memory"
	StageLogic     = "logic"
	StageEmotional = "emotional"
	StageExecutive = "executive"
)

// State fields.
const (
	FieldInput           = "input"
	FieldConversation    = "conversation"
	FieldPersona         = "persona"
	FieldSensory         = "sensory_analysis"
	FieldMemoryContext   = "memory_context"
	FieldRawMemories     = "raw_memories"
	FieldPersonaPassages = "persona_passages"
	FieldLogic           = "logical_analysis"
	FieldEmotional       = "emotional_analysis"
	FieldFinal           = "final_response"
)

// stageInfo describes how a stage reports itself in a Result.
type stageInfo struct {
	name   string
	role   string
	output string
}

var stageInfos = map[string]stageInfo{
	StageSensory:   {name: "Sensory", role: persona.RoleSensory, output: FieldSensory},
	StageMemory:    {name: "Memory", role: persona.RoleMemory, output: FieldMemoryContext},
	StageLogic:     {name: "Logic", role: persona.RoleLogic, output: FieldLogic},
	StageEmotional: {name: "Emotional", role: persona.RoleEmotional, output: FieldEmotional},
	StageExecutive: {name: "Executive", role: persona.RoleExecutive, output: FieldFinal},
}

// StageIDs returns the stage identifiers in graph order.
func StageIDs() []string {
	return []string{StageSensory, StageMemory, StageLogic, StageEmotional, StageExecutive}
}

// registry is the static registration table of the brain's stages.
func (b *Brain) registry() (*pipeline.Registry, error) {
	r := pipeline.NewRegistry()
	stages := []*pipeline.FuncStage{
		{
			Name:   StageSensory,
			Reads:  []string{FieldInput, FieldConversation, FieldPersona},
			Writes: []string{FieldSensory},
			Fn:     b.sensory,
		},
		{
			Name:   StageMemory,
			Deps:   []string{StageSensory},
			Reads:  []string{FieldInput, FieldConversation, FieldPersona},
			Writes: []string{FieldMemoryContext, FieldRawMemories, FieldPersonaPassages},
			Fn:     b.memory,
		},
		{
			Name:   StageLogic,
			Deps:   []string{StageSensory},
			Reads:  []string{FieldInput, FieldSensory, FieldConversation, FieldPersona},
			Writes: []string{FieldLogic},
			Fn:     b.logic,
		},
		{
			Name:   StageEmotional,
			Deps:   []string{StageSensory},
			Reads:  []string{FieldInput, FieldSensory, FieldConversation, FieldPersona},
			Writes: []string{FieldEmotional},
			Fn:     b.emotional,
		},
		{
			Name: StageExecutive,
			Deps: []string{StageMemory, StageLogic, StageEmotional},
			Reads: []string{
				FieldInput, FieldConversation, FieldPersona,
				FieldSensory, FieldMemoryContext, FieldLogic, FieldEmotional,
			},
			Writes: []string{FieldFinal},
			Fn:     b.executive,
		},
	}
	for _, st := range stages {
		st := st
		if err := r.Register(st.Name, func() (pipeline.Stage, error) { return st, nil }); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// invoke calls the reasoning service with the persona block for role
// inserted into system.
func (b *Brain) invoke(ctx context.Context, in pipeline.View, role, system string) (string, error) {
	if p, ok := in.Get(FieldPersona).(*persona.Profile); ok && p != nil {
		system = persona.Inject(system, p.AgentContext(role))
	}
	return b.reasoner.Invoke(ctx, system, in.String(FieldInput))
}

func (b *Brain) sensory(ctx context.Context, in pipeline.View) (pipeline.Outputs, error) {
	system := fmt.Sprintf(sensoryPrompt, orNone(in.String(FieldConversation), noConversation))
	out, err := b.invoke(ctx, in, persona.RoleSensory, system)
	if err != nil {
		return nil, err
	}
	return pipeline.Outputs{FieldSensory: out}, nil
}

func (b *Brain) memory(ctx context.Context, in pipeline.View) (pipeline.Outputs, error) {
	query := in.String(FieldInput)

	memories, err := b.longTerm.Retrieve(ctx, query, b.retrieveLimit)
	if err != nil {
		return nil, err
	}
	passages, err := b.passages(ctx, query)
	if err != nil {
		return nil, err
	}

	system := fmt.Sprintf(memoryPrompt,
		FormatMemories(memories),
		passagesSection(b.indexLabel(), passages),
		orNone(in.String(FieldConversation), noConversation))
	out, err := b.invoke(ctx, in, persona.RoleMemory, system)
	if err != nil {
		return nil, err
	}
	return pipeline.Outputs{
		FieldMemoryContext:   out,
		FieldRawMemories:     memories,
		FieldPersonaPassages: passages,
	}, nil
}

// passages searches the semantic index. A failed search is logged and
// yields no passages; only context errors abort the stage.
func (b *Brain) passages(ctx context.Context, query string) ([]string, error) {
	if b.index == nil || !b.index.Loaded() {
		return nil, nil
	}
	found, err := b.index.Search(ctx, query, b.searchTopK)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		b.logger.Warnf("semantic search failed, continuing without passages: %v", err)
		return nil, nil
	}
	return found, nil
}

func (b *Brain) indexLabel() string {
	if b.index == nil {
		return ""
	}
	return b.index.Label()
}

func (b *Brain) logic(ctx context.Context, in pipeline.View) (pipeline.Outputs, error) {
	system := fmt.Sprintf(logicPrompt,
		orNone(in.String(FieldSensory), "None."),
		orNone(in.String(FieldConversation), noConversation))
	out, err := b.invoke(ctx, in, persona.RoleLogic, system)
	if err != nil {
		return nil, err
	}
	return pipeline.Outputs{FieldLogic: out}, nil
}

func (b *Brain) emotional(ctx context.Context, in pipeline.View) (pipeline.Outputs, error) {
	system := fmt.Sprintf(emotionalPrompt,
		orNone(in.String(FieldSensory), "None."),
		orNone(in.String(FieldConversation), noConversation))
	out, err := b.invoke(ctx, in, persona.RoleEmotional, system)
	if err != nil {
		return nil, err
	}
	return pipeline.Outputs{FieldEmotional: out}, nil
}

func (b *Brain) executive(ctx context.Context, in pipeline.View) (pipeline.Outputs, error) {
	system := fmt.Sprintf(executivePrompt,
		orNone(in.String(FieldSensory), "None."),
		orNone(in.String(FieldMemoryContext), noMemories),
		orNone(in.String(FieldLogic), "None."),
		orNone(in.String(FieldEmotional), "None."),
		orNone(in.String(FieldConversation), noConversation))
	out, err := b.invoke(ctx, in, persona.RoleExecutive, system)
	if err != nil {
		return nil, err
	}
	return pipeline.Outputs{FieldFinal: out}, nil
}

// FormatMemories renders entries as "- [timestamp] content" lines, or a
// placeholder when there are none.
func FormatMemories(entries []longterm.Entry) string {
	if len(entries) == 0 {
		return noMemories
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("- [%s] %s", e.Timestamp, e.Content)
	}
	return strings.Join(lines, "\n")
}
