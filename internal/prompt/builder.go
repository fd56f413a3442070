package prompt

import (
	"fmt"
	"strconv"
	"strings"
)

// Prompt is the composed instruction pair plus the sampling preset for one request
type Prompt struct {
	System string
	User   string
	Mode   Mode
	Config GenerationConfig
}

// Builder composes prompts for excuse generation
type Builder struct {
	loader *Loader
}

// NewPromptBuilder creates a new prompt builder
func NewPromptBuilder() *Builder {
	return &Builder{loader: NewPromptLoader()}
}

// Build composes the system and user instructions for a request. It has no side effects.
func (b *Builder) Build(req Request) (*Prompt, error) {
	mode := ModeFor(req.Cause)

	system, err := b.loader.GetSystemPrompt(mode)
	if err != nil {
		return nil, err
	}
	if system == "" {
		return nil, fmt.Errorf("system prompt for mode %s is empty", mode)
	}

	return &Prompt{
		System: system,
		User:   userInstruction(req),
		Mode:   mode,
		Config: ConfigFor(mode),
	}, nil
}

// Compose is Build on a default builder
func Compose(req Request) (*Prompt, error) {
	return NewPromptBuilder().Build(req)
}

// userInstruction serializes the normalized fields as key=value lines followed by the task.
// The keys are only meant for the model; the task line forbids echoing them.
func userInstruction(req Request) string {
	minutesSelected := req.Delay != ""
	minutesLabel := ""
	if minutesSelected {
		minutesLabel = DelayLabel(req.Delay)
	}

	var sb strings.Builder
	sb.WriteString("【入力】\n")
	writeField(&sb, "minutes_selected", strconv.FormatBool(minutesSelected))
	writeField(&sb, "minutes_label", minutesLabel)
	writeField(&sb, "cause", orDefault(req.Cause, unselected))
	writeField(&sb, "target", orDefault(req.Audience, unselected))
	writeField(&sb, "tone", string(ToneFor(req.Audience)))
	writeField(&sb, "detail", orDefault(req.Detail, noDetail))
	sb.WriteString("【要件】自然な日本語で1〜3文の遅刻連絡文を生成する。余計な注釈やラベルは書かない。")
	return sb.String()
}

func writeField(sb *strings.Builder, key, value string) {
	sb.WriteString(key)
	sb.WriteByte('=')
	sb.WriteString(value)
	sb.WriteByte('\n')
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
