package answer

import (
	"context"

	"github.com/kailas-cloud/storydex/internal/domain/search/request"
	"github.com/kailas-cloud/storydex/internal/domain/search/response"
	"github.com/kailas-cloud/storydex/internal/domain/story"
	"github.com/kailas-cloud/storydex/internal/repository/memo"
)

// Retriever runs the retrieval pipeline.
type Retriever interface {
	Retrieve(ctx context.Context, q request.Query) (response.Response, error)
}

// Generator writes answers and alternative questions.
type Generator interface {
	Generate(ctx context.Context, query string, stories []*story.Story) (string, error)
	Suggest(ctx context.Context, query string) ([]string, error)
}

// Memo remembers the stories a session was last shown.
type Memo interface {
	Save(ctx context.Context, sessionID string, entry memo.Entry) error
	Load(ctx context.Context, sessionID string) (memo.Entry, error)
}

// Corpus resolves remembered story IDs.
type Corpus interface {
	Lookup(id string) (*story.Story, bool)
}
