package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"retrieval-engine/internal/domain"
	"retrieval-engine/internal/usecase/retrieval"
)

// AnswerInput defines the input parameters for Answer.
type AnswerInput struct {
	WorkspaceID      string
	Question         string
	Citations        bool
	IncludeRationale bool
}

// AnswerCitation points a claim back at the chunk that supports it.
type AnswerCitation struct {
	ChunkID    string
	DocumentID string
	Title      string
	Snippet    string
	Score      float64
}

// AnswerOutput defines the output for Answer.
type AnswerOutput struct {
	Answer    string
	Citations []AnswerCitation
	Rationale *retrieval.Rationale
	// Fallback is true when generation failed and the answer is an
	// extractive snippet list instead.
	Fallback  bool
	RequestID string
}

// AnswerUsecase answers a question over the workspace: search, hydrate
// the top chunks, generate with citations.
type AnswerUsecase interface {
	Execute(ctx context.Context, input AnswerInput) (*AnswerOutput, error)
}

type answerUsecase struct {
	search    SearchUsecase
	hydrator  domain.Hydrator
	generator domain.Generator
	maxChunks int
	maxTokens int
	logger    *slog.Logger
}

// NewAnswerUsecase creates a new AnswerUsecase.
func NewAnswerUsecase(search SearchUsecase, hydrator domain.Hydrator, generator domain.Generator, maxChunks, maxTokens int, logger *slog.Logger) AnswerUsecase {
	return &answerUsecase{
		search:    search,
		hydrator:  hydrator,
		generator: generator,
		maxChunks: maxChunks,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

func (u *answerUsecase) Execute(ctx context.Context, input AnswerInput) (*AnswerOutput, error) {
	if input.WorkspaceID == "" || strings.TrimSpace(input.Question) == "" {
		return nil, domain.ErrInvalidQuery
	}

	searchOut, err := u.search.Execute(ctx, SearchInput{
		WorkspaceID:      input.WorkspaceID,
		Query:            input.Question,
		TopK:             u.maxChunks,
		IncludeRationale: input.IncludeRationale,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	output := &AnswerOutput{RequestID: searchOut.RequestID}
	if input.IncludeRationale {
		output.Rationale = searchOut.Rationale
	}
	if len(searchOut.Results) == 0 {
		output.Fallback = true
		output.Answer = "No relevant content was found in this workspace."
		return output, nil
	}

	contexts := u.hydrate(ctx, input.WorkspaceID, searchOut)

	if input.Citations {
		for _, c := range contexts {
			output.Citations = append(output.Citations, AnswerCitation{
				ChunkID:    c.chunkID,
				DocumentID: c.documentID,
				Title:      c.title,
				Snippet:    snippet(c.text, 240),
				Score:      c.score,
			})
		}
	}

	prompt := buildAnswerPrompt(input.Question, contexts)
	generated, err := u.generator.Generate(ctx, prompt, u.maxTokens)
	if err != nil {
		u.logger.Warn("generation_failed_falling_back",
			slog.String("request_id", searchOut.RequestID),
			slog.String("error", err.Error()))
		output.Fallback = true
		output.Answer = extractiveAnswer(contexts)
		return output, nil
	}

	output.Answer = strings.TrimSpace(generated.Text)
	u.logger.Info("answer_generated",
		slog.String("request_id", searchOut.RequestID),
		slog.String("model", u.generator.ModelName()),
		slog.Int("context_count", len(contexts)),
		slog.Int("completion_tokens", generated.CompletionTokens))
	return output, nil
}

type answerContext struct {
	chunkID    string
	documentID string
	title      string
	text       string
	score      float64
}

// hydrate fetches chunk bodies for the ranked results. A hydration
// failure degrades to title-only contexts rather than failing the
// answer.
func (u *answerUsecase) hydrate(ctx context.Context, workspaceID string, searchOut *SearchOutput) []answerContext {
	ids := make([]domain.ContentID, 0, len(searchOut.Results))
	for _, r := range searchOut.Results {
		ids = append(ids, domain.ContentID{Kind: domain.SourceType(r.SourceType), ID: r.ChunkID})
	}

	textByID := make(map[string]string)
	contents, err := u.hydrator.Fetch(ctx, workspaceID, ids)
	if err != nil {
		u.logger.Warn("answer_hydration_failed", slog.String("error", err.Error()))
	} else {
		for _, c := range contents {
			textByID[c.ID] = c.Text
		}
	}

	contexts := make([]answerContext, 0, len(searchOut.Results))
	for _, r := range searchOut.Results {
		contexts = append(contexts, answerContext{
			chunkID:    r.ChunkID,
			documentID: r.DocumentID,
			title:      r.Title,
			text:       textByID[r.ChunkID],
			score:      r.Score,
		})
	}
	return contexts
}

func buildAnswerPrompt(question string, contexts []answerContext) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the provided context. Cite chunk IDs in square brackets.\n\n")
	b.WriteString("<context>\n")
	for _, c := range contexts {
		fmt.Fprintf(&b, "<chunk id=%q title=%q>\n%s\n</chunk>\n", c.chunkID, c.title, c.text)
	}
	b.WriteString("</context>\n\n")
	fmt.Fprintf(&b, "Question: %s\n", question)
	return b.String()
}

// extractiveAnswer concatenates the best snippets when generation is
// unavailable.
func extractiveAnswer(contexts []answerContext) string {
	var parts []string
	for i, c := range contexts {
		if i == 3 {
			break
		}
		text := c.text
		if text == "" {
			text = c.title
		}
		parts = append(parts, snippet(text, 240))
	}
	return strings.Join(parts, "\n\n")
}

func snippet(text string, max int) string {
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}
	return text[:max] + "…"
}
