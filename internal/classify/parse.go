package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"adtrim/internal/adwindow"
	"adtrim/internal/services"
	"adtrim/internal/services/llm"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Rejection records an annotation dropped during parsing.
type Rejection struct {
	Raw    string
	Reason string
}

// ParseResult holds the accepted annotations plus anything that was dropped.
type ParseResult struct {
	Annotations []adwindow.Annotation
	Rejected    []Rejection
}

// ParseCompletion extracts annotations from a model answer. Tool calls named
// SegmentAnnotation are preferred; otherwise the text content is decoded as a
// JSON object with an "annotations" array or as a bare array. Entries that
// fail validation or reference a segment outside [0, totalSegments) are
// rejected rather than failing the whole answer.
func ParseCompletion(completion llm.Completion, totalSegments int) (ParseResult, error) {
	var candidates []string
	for _, call := range completion.ToolCalls {
		if call.Name != "" && !strings.EqualFold(call.Name, ToolName) {
			continue
		}
		candidates = append(candidates, call.Arguments)
	}

	var result ParseResult
	var raw []json.RawMessage
	for _, args := range candidates {
		items, err := splitPayload(args)
		if err != nil {
			result.Rejected = append(result.Rejected, Rejection{Raw: args, Reason: err.Error()})
			continue
		}
		raw = append(raw, items...)
	}
	if len(candidates) == 0 {
		content := strings.TrimSpace(completion.Content)
		if content == "" {
			return result, services.Wrap(services.ErrValidation, "classify", "parse", "model returned no annotations", nil)
		}
		items, err := splitPayload(content)
		if err != nil {
			return result, services.Wrap(services.ErrValidation, "classify", "parse", "decode content", err)
		}
		raw = items
	}

	for _, item := range raw {
		var ann adwindow.Annotation
		if err := json.Unmarshal(item, &ann); err != nil {
			result.Rejected = append(result.Rejected, Rejection{Raw: string(item), Reason: err.Error()})
			continue
		}
		ann.SegmentType = adwindow.SegmentType(strings.ToLower(strings.TrimSpace(string(ann.SegmentType))))
		if err := getValidator().Struct(ann); err != nil {
			result.Rejected = append(result.Rejected, Rejection{Raw: string(item), Reason: describeValidation(err)})
			continue
		}
		if ann.SegmentIndex >= totalSegments {
			result.Rejected = append(result.Rejected, Rejection{
				Raw:    string(item),
				Reason: (&adwindow.IndexError{Index: ann.SegmentIndex, Total: totalSegments}).Error(),
			})
			continue
		}
		result.Annotations = append(result.Annotations, ann)
	}

	if len(result.Annotations) == 0 && len(result.Rejected) > 0 {
		return result, services.Wrap(services.ErrValidation, "classify", "parse",
			fmt.Sprintf("all %d annotations rejected: %s", len(result.Rejected), result.Rejected[0].Reason), nil)
	}
	result.Annotations = adwindow.SortAnnotations(result.Annotations)
	return result, nil
}

// splitPayload accepts a single annotation object, an array of annotations, or
// an object wrapping an "annotations" array.
func splitPayload(payload string) ([]json.RawMessage, error) {
	var wrapper struct {
		Annotations []json.RawMessage `json:"annotations"`
	}
	var generic any
	if err := llm.DecodeLLMJSON(payload, &generic); err != nil {
		return nil, err
	}
	switch value := generic.(type) {
	case []any:
		var items []json.RawMessage
		if err := llm.DecodeLLMJSON(payload, &items); err != nil {
			return nil, err
		}
		return items, nil
	case map[string]any:
		if _, ok := value["annotations"]; ok {
			if err := llm.DecodeLLMJSON(payload, &wrapper); err != nil {
				return nil, err
			}
			return wrapper.Annotations, nil
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		return []json.RawMessage{encoded}, nil
	default:
		return nil, errors.New("annotation payload is neither object nor array")
	}
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		param := fe.Param()
		if param != "" {
			param = "=" + param
		}
		parts = append(parts, fmt.Sprintf("%s failed %s%s (got %v)", fe.Field(), fe.Tag(), param, fe.Value()))
	}
	return strings.Join(parts, "; ")
}
