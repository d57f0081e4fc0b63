// Package answer turns retrieval results into a narrated reply with sources.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/storydex/internal/domain"
	"github.com/kailas-cloud/storydex/internal/domain/search/candidate"
	"github.com/kailas-cloud/storydex/internal/domain/search/confidence"
	"github.com/kailas-cloud/storydex/internal/domain/search/filter"
	"github.com/kailas-cloud/storydex/internal/domain/search/request"
	"github.com/kailas-cloud/storydex/internal/domain/story"
	"github.com/kailas-cloud/storydex/internal/logger"
	"github.com/kailas-cloud/storydex/internal/metrics"
	"github.com/kailas-cloud/storydex/internal/repository/memo"
)

// Fixed narratives for replies that do not cite stories.
const (
	NoMatchText   = "I don't have a story that fits that question. Here are a few things you could ask instead."
	OffDomainText = "I can only talk about my project experience. Try asking about a client, an industry or a kind of work."
	NoContextText = "There is nothing to expand on yet. Ask about a project first."
)

// Answer is the reply to one question.
type Answer struct {
	Text        string
	Sources     []*story.Story
	Confidence  confidence.Band
	TopScore    float64
	Suggestions []string
	OffDomain   string
	// RelaxedCount and ActiveFilters report filters that removed every candidate.
	RelaxedCount  int
	ActiveFilters []filter.Active
	// Fallback is set when sources came from local keyword ranking.
	Fallback bool
	// Templated is set when the generator failed and the text was rendered locally.
	Templated bool
	FollowUp  bool
}

// Config holds answer settings.
type Config struct {
	DefaultSuggestions []string
}

// Service answers questions.
type Service struct {
	retriever Retriever
	generator Generator
	memo      Memo
	corpus    Corpus
	cfg       Config
	logger    *zap.Logger
}

// New creates an answer service. memo may be nil for stateless deployments.
func New(retriever Retriever, generator Generator, m Memo, corpus Corpus, cfg Config, log *zap.Logger) *Service {
	return &Service{
		retriever: retriever,
		generator: generator,
		memo:      m,
		corpus:    corpus,
		cfg:       cfg,
		logger:    log,
	}
}

// Ask answers q. Dependency failures degrade the reply; only invalid input is returned as an error.
func (s *Service) Ask(ctx context.Context, q request.Query) (Answer, error) {
	if q.IsBlank() {
		return Answer{Confidence: confidence.None}, nil
	}

	if q.SessionID() != "" && IsFollowUp(q.Text()) {
		if ans, ok := s.followUp(ctx, q); ok {
			return ans, nil
		}
	}

	resp, err := s.retriever.Retrieve(ctx, q)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve: %w", err)
	}

	ans := Answer{
		Confidence:    resp.Confidence,
		TopScore:      resp.TopScore,
		OffDomain:     resp.OffDomain,
		RelaxedCount:  resp.RelaxedCount,
		ActiveFilters: resp.ActiveFilters,
		Fallback:      resp.Fallback,
	}

	switch {
	case resp.IsOffDomain():
		ans.Text = OffDomainText
		ans.Suggestions = s.defaults()
		return ans, nil
	case resp.RelaxedCount > 0:
		ans.Text = relaxedText(resp.ActiveFilters, resp.RelaxedCount)
		ans.Suggestions = s.suggest(ctx, q.Text())
		return ans, nil
	case resp.Confidence == confidence.None || len(resp.Results) == 0:
		ans.Confidence = confidence.None
		ans.Text = NoMatchText
		ans.Suggestions = s.suggest(ctx, q.Text())
		return ans, nil
	}

	ans.Sources = candidate.Stories(resp.Results)
	ans.Text, ans.Templated = s.narrate(ctx, q.Text(), ans.Sources)
	s.remember(ctx, q.SessionID(), ans)
	return ans, nil
}

// followUp expands on the stories the session was last shown. ok is false when
// nothing usable is remembered and the question should go through retrieval.
func (s *Service) followUp(ctx context.Context, q request.Query) (Answer, bool) {
	if s.memo == nil {
		return Answer{}, false
	}
	log := logger.FromContextOr(ctx, s.logger)

	entry, err := s.memo.Load(ctx, q.SessionID())
	if errors.Is(err, domain.ErrNotFound) {
		return Answer{Text: NoContextText, Confidence: confidence.None, FollowUp: true, Suggestions: s.defaults()}, true
	}
	if err != nil {
		log.Warn("Failed to load session memo, retrieving instead", zap.Error(err))
		return Answer{}, false
	}

	stories := make([]*story.Story, 0, len(entry.IDs))
	for _, id := range entry.IDs {
		if st, ok := s.corpus.Lookup(id); ok {
			stories = append(stories, st)
		}
	}
	if len(stories) == 0 {
		return Answer{}, false
	}

	band := confidence.Band(entry.Confidence)
	if !band.IsValid() {
		band = confidence.Low
	}
	ans := Answer{
		Sources:    stories,
		Confidence: band,
		TopScore:   entry.TopScore,
		FollowUp:   true,
	}
	ans.Text, ans.Templated = s.narrate(ctx, q.Text(), stories)
	s.remember(ctx, q.SessionID(), ans)
	return ans, true
}

// narrate asks the generator for prose and falls back to a local summary of the top story.
func (s *Service) narrate(ctx context.Context, query string, stories []*story.Story) (string, bool) {
	text, err := s.generator.Generate(ctx, query, stories)
	if err == nil {
		return text, false
	}
	logger.FromContextOr(ctx, s.logger).Warn("Generator failed, rendering template", zap.Error(err))
	metrics.GeneratorFallbackTotal.Inc()
	return Summarize(stories[0]), true
}

func (s *Service) suggest(ctx context.Context, query string) []string {
	out, err := s.generator.Suggest(ctx, query)
	if err != nil {
		logger.FromContextOr(ctx, s.logger).Warn("Suggestion generation failed", zap.Error(err))
		return s.defaults()
	}
	if len(out) == 0 {
		return s.defaults()
	}
	return out
}

func (s *Service) defaults() []string {
	return append([]string(nil), s.cfg.DefaultSuggestions...)
}

func (s *Service) remember(ctx context.Context, sessionID string, ans Answer) {
	if s.memo == nil || sessionID == "" {
		return
	}
	ids := make([]string, len(ans.Sources))
	for i, st := range ans.Sources {
		ids[i] = st.ID
	}
	entry := memo.Entry{IDs: ids, Confidence: string(ans.Confidence), TopScore: ans.TopScore}
	if err := s.memo.Save(ctx, sessionID, entry); err != nil {
		logger.FromContextOr(ctx, s.logger).Warn("Failed to save session memo", zap.Error(err))
	}
}

// Summarize renders the top story without the generator.
func Summarize(st *story.Story) string {
	var b strings.Builder
	b.WriteString(st.Title)
	if st.Client != "" {
		fmt.Fprintf(&b, " (%s)", st.Client)
	}
	b.WriteString(".")
	if st.Summary != "" {
		b.WriteString(" ")
		b.WriteString(st.Summary)
	}
	if len(st.Result) > 0 && strings.TrimSpace(st.Result[0]) != "" {
		b.WriteString(" Result: ")
		b.WriteString(strings.TrimSpace(st.Result[0]))
	}
	return b.String()
}

func relaxedText(filters []filter.Active, relaxed int) string {
	labels := make([]string, len(filters))
	for i, f := range filters {
		labels[i] = f.String()
	}
	return fmt.Sprintf("No stories match %s. %d would match without those filters.",
		strings.Join(labels, ", "), relaxed)
}
