package transform

import (
	"context"
	"encoding/json"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// instructionTemplate is the fixed instruction set rendered for every model
// invocation. The model must answer with a single JSON object and nothing
// else; anything around the object is stripped before parsing.
const instructionTemplate = `Instruction:
You are a highly reliable file path transformation system. Analyze a source file name and folder path, extract key information, and format it into a new target file path and name. Respond with a strict JSON object only.

Extraction:
- Date: if the date is YYYYMMMDD (e.g. 2023APR18), convert the month abbreviation to two digits (APR -> 04) so the date is always YYYYMMDD. The date sits immediately before the file extension.
- Study name: the string appearing in both the file name and the folder path (e.g. P23-380).
- Blinding status: the keyword BLINDED or UNBLINDED.
- Dataset: for SAM files, the token after the environment (TEST/PROD) and before the blinding status; use unknowndataset if unidentifiable.
- Vendor: a company or lab name (e.g. UC lab, EPC) before the date; use unknownvendor if absent.
- Extension: the substring after the final dot.

Rules:
- Rule A (names starting with SAM_): Target File Name is [blinding status]_[dataset]_[date].[extension]; Target File Path is rtft/[study name]/[vendor]/.
- Rule B (all other names): Target File Name is the source name unchanged; Target File Path is rtft/[study name]/[vendor]/ when both are identified, rtft/[study name]/unknownvendor/ when only the study is, rtft/unknownstudy/unknownvendor/ when neither is.

Output format: {"Target File Name": "...", "Target File Path": "..."} with no additional text.`

// ModelConfig configures the hosted-model extractor. BaseURL may point at any
// OpenAI-compatible endpoint.
type ModelConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Model is a Transformer backed by a hosted text model behind an
// OpenAI-compatible chat completion API. It renders the fixed instruction
// template, asks the model for the target name and path, and refuses any
// response that is not a well-formed result.
type Model struct {
	api   *openai.Client
	model string
}

// NewModel builds a hosted-model transformer from config.
func NewModel(cfg ModelConfig) *Model {
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	return &Model{
		api:   openai.NewClientWithConfig(c),
		model: cfg.Model,
	}
}

// Transform invokes the model and parses its response into a TargetLocation.
// Malformed or incomplete responses are an ExtractionError, never a guess.
func (m *Model) Transform(ctx context.Context, fileName, folderPath string) (TargetLocation, error) {
	prompt := instructionTemplate +
		"\n\nInput:\nSource File Name: " + fileName +
		"\nSource File Path: " + folderPath +
		"\nOutput:"

	resp, err := m.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   512,
		Temperature: 0,
		TopP:        0.9,
	})
	if err != nil {
		return TargetLocation{}, &ExtractionError{Reason: "model invocation failed", Err: err}
	}
	if len(resp.Choices) == 0 {
		return TargetLocation{}, &ExtractionError{Reason: "model returned no choices"}
	}
	return parseModelOutput(resp.Choices[0].Message.Content)
}

// parseModelOutput isolates the outermost JSON object in the model's reply
// and validates it against the target-location invariants.
func parseModelOutput(text string) (TargetLocation, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return TargetLocation{}, &ExtractionError{Reason: "response contains no JSON object"}
	}

	var out struct {
		FileName string `json:"Target File Name"`
		FilePath string `json:"Target File Path"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return TargetLocation{}, &ExtractionError{Reason: "response is not valid JSON", Err: err}
	}
	if out.FileName == "" || out.FilePath == "" {
		return TargetLocation{}, &ExtractionError{Reason: "response missing target name or path"}
	}

	segs := folderSegments(out.FilePath)
	if len(segs) < 3 || segs[0] != RootSegment {
		return TargetLocation{}, &ExtractionError{Reason: "target path not rooted at " + RootSegment + "/study/vendor"}
	}
	return TargetLocation{PathSegments: segs, FileName: out.FileName}, nil
}
