package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/gemgram/gemgram/internal/provider"
)

// buildGenerateConfig creates a Gemini generation config from a provider
// CompletionRequest, merging request-level overrides with config defaults.
func (p *Provider) buildGenerateConfig(req provider.CompletionRequest) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{}

	switch {
	case req.System != "":
		gc.SystemInstruction = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(req.System)}}
	case p.config.SystemPrompt != "":
		gc.SystemInstruction = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(p.config.SystemPrompt)}}
	}

	switch {
	case req.MaxTokens > 0:
		gc.MaxOutputTokens = int32(req.MaxTokens)
	case p.config.MaxTokens > 0:
		gc.MaxOutputTokens = int32(p.config.MaxTokens)
	}

	switch {
	case req.Temperature != nil:
		gc.Temperature = genai.Ptr(float32(*req.Temperature))
	case p.config.Temperature != nil:
		gc.Temperature = genai.Ptr(float32(*p.config.Temperature))
	}

	if p.config.TopP != nil {
		gc.TopP = genai.Ptr(float32(*p.config.TopP))
	}

	return gc
}

// Complete sends the prompt to the Gemini API and returns the full response.
// It makes exactly one upstream call; failed completions are never retried
// here or anywhere up the stack.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.config.Model, genai.Text(req.Prompt), p.buildGenerateConfig(req))
	if err != nil {
		return provider.CompletionResponse{}, mapError(err)
	}
	return fromResponse(resp)
}

// fromResponse converts a Gemini response to a provider CompletionResponse.
// A response without usable text (safety block, empty candidate) is an error:
// the caller needs something to send back to the chat.
func fromResponse(resp *genai.GenerateContentResponse) (provider.CompletionResponse, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return provider.CompletionResponse{}, fmt.Errorf("gemini: prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}

	text := resp.Text()
	if text == "" {
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			return provider.CompletionResponse{}, fmt.Errorf("gemini: empty completion (finish reason %s)", resp.Candidates[0].FinishReason)
		}
		return provider.CompletionResponse{}, fmt.Errorf("gemini: empty completion")
	}

	out := provider.CompletionResponse{
		Content:      text,
		FinishReason: provider.FinishReasonStop,
	}

	if len(resp.Candidates) > 0 {
		out.FinishReason = mapFinishReason(resp.Candidates[0].FinishReason)
	}

	if u := resp.UsageMetadata; u != nil {
		out.Usage = provider.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	return out, nil
}

// mapFinishReason converts Gemini finish reasons to provider finish reasons.
func mapFinishReason(fr genai.FinishReason) provider.FinishReason {
	switch fr {
	case genai.FinishReasonMaxTokens:
		return provider.FinishReasonLength
	case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
		return provider.FinishReasonFiltering
	default:
		return provider.FinishReasonStop
	}
}

// HealthCheck validates the provider is reachable by counting tokens on a
// trivial prompt. countTokens exercises authentication and model access
// without consuming generation quota.
func (p *Provider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.Models.CountTokens(ctx, p.config.Model, genai.Text("ping"), nil); err != nil {
		return mapError(err)
	}
	return nil
}

// ModelName returns the configured model identifier.
func (p *Provider) ModelName() string {
	return p.config.Model
}
