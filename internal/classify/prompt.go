package classify

import (
	"adtrim/internal/services/llm"
	"adtrim/internal/transcript"
)

// ToolName is the function the model calls once per annotation.
const ToolName = "SegmentAnnotation"

const systemPrompt = "You are a helpful assistant. You help users identify segments in a transcription that are ads or content. " +
	"You will be given a transcription and asked to annotate the segments as either ads or content. " +
	"You ONLY need to provide annotations for the segments at the beginning of each ad or content block."

const userPromptPrefix = "Please annotate following transcription with the segments that are ads or content:\n"

// SystemPrompt returns the instructions sent with every classification request.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt renders the numbered segment listing for t.
func UserPrompt(t *transcript.Transcript) string {
	return userPromptPrefix + transcript.FormatIndexed(t)
}

// AnnotationTool declares the SegmentAnnotation function.
func AnnotationTool() llm.Tool {
	return llm.FunctionTool(ToolName, "Mark the first segment of an ad or content block.", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"segment_type": map[string]any{
				"type":        "string",
				"enum":        []string{"ad", "content"},
				"description": "Whether the block starting at this segment is an ad or content.",
			},
			"segment_index": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"description": "Index of the first segment of the block.",
			},
		},
		"required":             []string{"segment_type", "segment_index"},
		"additionalProperties": false,
	})
}
