package classify

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"adtrim/internal/adwindow"
	"adtrim/internal/logging"
	"adtrim/internal/services"
	"adtrim/internal/services/llm"
	"adtrim/internal/transcript"
)

// Classifier produces transition annotations for a transcript. key identifies
// the source (usually the audio path) for caching and logging.
type Classifier interface {
	Classify(ctx context.Context, key string, t *transcript.Transcript) ([]adwindow.Annotation, error)
}

// Completer is the subset of the LLM client the classifier needs.
type Completer interface {
	CompleteToolCalls(ctx context.Context, req llm.ToolRequest) (llm.Completion, error)
	ListModels(ctx context.Context, modelsURL string) ([]llm.Model, error)
}

// LLMClassifier annotates transcripts with a tool-calling chat model.
type LLMClassifier struct {
	client    Completer
	modelsURL string
	logger    *slog.Logger

	modelMu sync.Mutex
	model   string
}

// NewLLMClassifier builds a classifier. An empty model triggers discovery via
// modelsURL on first use.
func NewLLMClassifier(client Completer, model, modelsURL string, logger *slog.Logger) *LLMClassifier {
	return &LLMClassifier{
		client:    client,
		model:     strings.TrimSpace(model),
		modelsURL: strings.TrimSpace(modelsURL),
		logger:    logging.NewComponentLogger(logger, "classify"),
	}
}

// Complete sends t to the model and returns the raw answer.
func (c *LLMClassifier) Complete(ctx context.Context, t *transcript.Transcript) (llm.Completion, error) {
	model, err := c.resolveModel(ctx)
	if err != nil {
		return llm.Completion{}, services.Wrap(services.ErrConfiguration, "classify", "resolve model", "", err)
	}
	completion, err := c.client.CompleteToolCalls(ctx, llm.ToolRequest{
		Model:        model,
		SystemPrompt: SystemPrompt(),
		UserPrompt:   UserPrompt(t),
		Tools:        []llm.Tool{AnnotationTool()},
	})
	if err != nil {
		return llm.Completion{}, services.Wrap(services.ErrExternalTool, "classify", "complete", model, err)
	}
	return completion, nil
}

// Classify returns sorted annotations for t.
func (c *LLMClassifier) Classify(ctx context.Context, key string, t *transcript.Transcript) ([]adwindow.Annotation, error) {
	if t == nil || t.Len() == 0 {
		return []adwindow.Annotation{}, nil
	}
	completion, err := c.Complete(ctx, t)
	if err != nil {
		return nil, err
	}
	return c.parse(ctx, key, completion, t.Len())
}

func (c *LLMClassifier) parse(ctx context.Context, key string, completion llm.Completion, total int) ([]adwindow.Annotation, error) {
	logger := logging.WithContext(ctx, c.logger)
	result, err := ParseCompletion(completion, total)
	for _, rej := range result.Rejected {
		logging.WarnWithContext(logger, "annotation rejected", "annotation_rejected",
			logging.String("source", key),
			logging.String("reason", rej.Reason),
			logging.String("raw", rej.Raw),
			logging.String(logging.FieldImpact, "transition ignored, neighbouring block extends over it"),
		)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("annotations parsed",
		logging.String("source", key),
		logging.Int("annotations", len(result.Annotations)),
		logging.Int("tool_calls", len(completion.ToolCalls)),
	)
	return result.Annotations, nil
}
