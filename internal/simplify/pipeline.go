package simplify

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrEmptyInput means no usable text reached the pipeline.
	ErrEmptyInput = errors.New("no text to simplify")
	// ErrEmptyOutput means the engine produced text that cleaned down to
	// nothing. Distinct from ErrEmptyInput and reported separately.
	ErrEmptyOutput = errors.New("simplification produced no output")
	// ErrEngineFailed means a summarize or simplify call failed. The whole
	// submission aborts; no partial result is ever returned.
	ErrEngineFailed = errors.New("simplification failed")
)

const (
	// DefaultChunkBudget bounds the character length of a single engine call.
	DefaultChunkBudget = 800

	summaryMaxLen = 150
	summaryMinLen = 50
	excerptLen    = 200

	simplifyPrompt = "simplify for a small business owner:\n\n"
)

// Pipeline runs chunk → summarize → simplify → assemble → clean.
type Pipeline struct {
	engine Engine
	budget int
}

func NewPipeline(engine Engine, budget int) *Pipeline {
	if budget <= 0 {
		budget = DefaultChunkBudget
	}
	return &Pipeline{engine: engine, budget: budget}
}

var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// Chunk splits text on blank-line paragraph boundaries and greedily packs
// paragraphs into chunks while the running length (separators included)
// stays under budget. A paragraph is never split; one longer than the budget
// becomes its own chunk.
func Chunk(text string, budget int) []string {
	if budget <= 0 {
		budget = DefaultChunkBudget
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	paragraphs := paragraphSplit.Split(trimmed, -1)

	var chunks []string
	current := ""
	for _, paragraph := range paragraphs {
		if len(current)+len(paragraph) < budget {
			current += paragraph + "\n\n"
			continue
		}
		if closed := strings.TrimSpace(current); closed != "" {
			chunks = append(chunks, closed)
		}
		current = paragraph + "\n\n"
	}
	if closed := strings.TrimSpace(current); closed != "" {
		chunks = append(chunks, closed)
	}
	return chunks
}

// Run transforms the full extracted text. Any chunk failure aborts the whole
// submission so nothing partial can be staged.
func (p *Pipeline) Run(ctx context.Context, text string) (string, error) {
	chunks := Chunk(text, p.budget)
	if len(chunks) == 0 {
		return "", ErrEmptyInput
	}

	sections := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		summary, err := p.engine.Summarize(ctx, chunk, summaryMaxLen, summaryMinLen)
		if err != nil {
			return "", fmt.Errorf("%w: summarize section %d: %v", ErrEngineFailed, i+1, err)
		}

		simple, err := p.engine.Simplify(ctx, simplifyPrompt+summary, summaryMaxLen)
		if err != nil {
			return "", fmt.Errorf("%w: simplify section %d: %v", ErrEngineFailed, i+1, err)
		}

		sections = append(sections, fmt.Sprintf(
			"Section %d\nOriginal excerpt: %s\n\nSimplified: %s\n",
			i+1, excerpt(chunk), strings.TrimSpace(simple),
		))
	}

	cleaned := Clean(strings.Join(sections, "\n\n"))
	if cleaned == "" {
		return "", ErrEmptyOutput
	}
	return cleaned, nil
}

// excerpt flattens a chunk to one line and keeps its first characters so the
// reader can match each section back to the source.
func excerpt(chunk string) string {
	flat := strings.ReplaceAll(chunk, "\n", " ")
	runes := []rune(flat)
	if len(runes) > excerptLen {
		flat = string(runes[:excerptLen])
	}
	return strings.TrimSpace(flat) + "..."
}

var (
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
	strayMarks  = regexp.MustCompile("[⚠️�]")
)

// Clean normalizes assembled output: carriage returns and stray markers
// dropped, space runs collapsed, at most one blank line between sections.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = strayMarks.ReplaceAllString(text, "")
	text = spaceRuns.ReplaceAllString(text, " ")
	text = newlineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
