package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"retrieval-engine/internal/domain"
)

// ContentsInput defines the input parameters for Contents.
type ContentsInput struct {
	WorkspaceID  string
	IDs          []domain.ContentID
	ExpandChunks bool
}

// ContentsOutput defines the output for Contents.
type ContentsOutput struct {
	Documents []domain.Content
	Chunks    []domain.Content
	RequestID string
}

// ContentsUsecase hydrates stored content by ID.
type ContentsUsecase interface {
	Execute(ctx context.Context, input ContentsInput) (*ContentsOutput, error)
}

type contentsUsecase struct {
	hydrator domain.Hydrator
	logger   *slog.Logger
}

// NewContentsUsecase creates a new ContentsUsecase.
func NewContentsUsecase(hydrator domain.Hydrator, logger *slog.Logger) ContentsUsecase {
	return &contentsUsecase{hydrator: hydrator, logger: logger}
}

func (u *contentsUsecase) Execute(ctx context.Context, input ContentsInput) (*ContentsOutput, error) {
	if input.WorkspaceID == "" || len(input.IDs) == 0 {
		return nil, domain.ErrInvalidQuery
	}
	requestID := newRequestID(ctx)

	contents, err := u.hydrator.Fetch(ctx, input.WorkspaceID, input.IDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contents: %w", err)
	}

	output := &ContentsOutput{RequestID: requestID}
	var documentIDs []string
	for _, c := range contents {
		output.Documents = append(output.Documents, c)
		if input.ExpandChunks && c.DocumentID != "" {
			documentIDs = append(documentIDs, c.DocumentID)
		}
	}

	if len(documentIDs) > 0 {
		chunks, err := u.hydrator.FetchDocumentChunks(ctx, input.WorkspaceID, documentIDs)
		if err != nil {
			// Chunk expansion is best effort; the documents themselves
			// already hydrated.
			u.logger.Warn("chunk_expansion_failed",
				slog.String("request_id", requestID),
				slog.String("error", err.Error()))
		} else {
			output.Chunks = chunks
		}
	}

	u.logger.Info("contents_hydrated",
		slog.String("request_id", requestID),
		slog.Int("document_count", len(output.Documents)),
		slog.Int("chunk_count", len(output.Chunks)))
	return output, nil
}
