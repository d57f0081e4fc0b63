package chi

import (
	"github.com/kailas-cloud/storydex/internal/domain/search/filter"
	"github.com/kailas-cloud/storydex/internal/domain/search/response"
	"github.com/kailas-cloud/storydex/internal/domain/story"
	answeruc "github.com/kailas-cloud/storydex/internal/usecase/answer"
)

func storyToAPI(s *story.Story) StoryItem {
	return StoryItem{
		ID:          s.ID,
		Title:       s.Title,
		Client:      s.Client,
		Role:        s.Role,
		Industry:    s.Industry,
		Category:    s.Category,
		SubCategory: s.SubCategory,
		Theme:       s.Theme,
		Summary:     s.Summary,
		Tags:        s.Tags,
		Situation:   s.Situation,
		Task:        s.Task,
		Action:      s.Action,
		Result:      s.Result,
	}
}

func activeToAPI(active []filter.Active) []ActiveFilter {
	if len(active) == 0 {
		return nil
	}
	out := make([]ActiveFilter, len(active))
	for i, a := range active {
		out[i] = ActiveFilter{Field: a.Field, Value: a.Value, Negated: a.Negated}
	}
	return out
}

func responseToAPI(r response.Response) SearchResponse {
	items := make([]SearchResultItem, len(r.Results))
	for i, c := range r.Results {
		items[i] = SearchResultItem{
			ID:         c.ID(),
			Title:      c.Story.Title,
			Client:     c.Client(),
			Industry:   c.Story.Industry,
			Similarity: c.Similarity,
			Keyword:    c.Keyword,
			Score:      c.Hybrid,
		}
	}
	return SearchResponse{
		Results:       items,
		Confidence:    string(r.Confidence),
		TopScore:      r.TopScore,
		Fallback:      r.Fallback,
		OffDomain:     r.OffDomain,
		RelaxedCount:  r.RelaxedCount,
		ActiveFilters: activeToAPI(r.ActiveFilters),
	}
}

func answerToAPI(a answeruc.Answer, sessionID string) AskResponse {
	sources := make([]StoryItem, len(a.Sources))
	for i, s := range a.Sources {
		sources[i] = storyToAPI(s)
	}
	return AskResponse{
		Answer:        a.Text,
		Sources:       sources,
		Confidence:    string(a.Confidence),
		TopScore:      a.TopScore,
		Suggestions:   a.Suggestions,
		OffDomain:     a.OffDomain,
		RelaxedCount:  a.RelaxedCount,
		ActiveFilters: activeToAPI(a.ActiveFilters),
		Fallback:      a.Fallback,
		Templated:     a.Templated,
		FollowUp:      a.FollowUp,
		SessionID:     sessionID,
	}
}
