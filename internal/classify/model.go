package classify

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"adtrim/internal/logging"
	"adtrim/internal/services/llm"
)

var excludedModelMarkers = []string{"instruct", "realtime", "audio"}

// PickLatestModel chooses the newest chat-capable gpt- model from models.
func PickLatestModel(models []llm.Model) (string, error) {
	candidates := make([]llm.Model, 0, len(models))
	for _, m := range models {
		id := strings.ToLower(strings.TrimSpace(m.ID))
		if !strings.HasPrefix(id, "gpt-") {
			continue
		}
		if slices.ContainsFunc(excludedModelMarkers, func(marker string) bool { return strings.Contains(id, marker) }) {
			continue
		}
		candidates = append(candidates, m)
	}
	if len(candidates) == 0 {
		return "", errors.New("no chat-capable gpt- model available")
	}
	slices.SortStableFunc(candidates, func(a, b llm.Model) int {
		if a.Created != b.Created {
			if a.Created > b.Created {
				return -1
			}
			return 1
		}
		return strings.Compare(b.ID, a.ID)
	})
	return candidates[0].ID, nil
}

// resolveModel returns the configured model or discovers one. A successful
// discovery is remembered for the lifetime of the classifier; failures are
// retried on the next call.
func (c *LLMClassifier) resolveModel(ctx context.Context) (string, error) {
	c.modelMu.Lock()
	defer c.modelMu.Unlock()
	if c.model != "" {
		return c.model, nil
	}
	if c.modelsURL == "" {
		return "", errors.New("classify: no model configured and no models url to discover one")
	}
	models, err := c.client.ListModels(ctx, c.modelsURL)
	if err != nil {
		return "", fmt.Errorf("classify: list models: %w", err)
	}
	model, err := PickLatestModel(models)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	c.model = model
	c.logger.Info("classification model resolved", logging.String("model", model), logging.Int("candidates", len(models)))
	return model, nil
}
