// Package ocr talks to the remote recognition service. It performs two
// operations: converting document bytes to Markdown and extracting
// structured JSON from recognized text. Retry policy lives elsewhere;
// this package only executes single calls and classifies their failures.
package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"golang.org/x/time/rate"

	"github.com/alonegg/mistral-ocr-tool/internal/config"
	"github.com/alonegg/mistral-ocr-tool/internal/document"
	"github.com/alonegg/mistral-ocr-tool/internal/logger"
	"github.com/alonegg/mistral-ocr-tool/models"
)

const (
	// Sustained throughput budget for remote calls, in estimated tokens.
	// Conservative enough to stay clear of service-side limits.
	tokensPerSecond = 30000
	burstTokens     = 60000

	// Rough per-call token estimate: document bytes dominate input cost.
	bytesPerToken = 48
	minCallTokens = 1000
)

const ocrPrompt = `Recognize the content of this document and transcribe it into Markdown.

Follow these instructions:

Text: Transcribe all text content directly into Markdown text, preserving reading order.
Lists: Keep the original list structure and nesting.
Tables: Render tables as Markdown tables. If a table contains merged cells, copy the parent cell content into each normalized child cell so no information is lost.
Images: Replace each figure or image with a short descriptive text of its content.
Headings: Use Markdown heading levels matching the document's visual hierarchy.

Return ONLY the Markdown content, with no preamble and no surrounding code fences. Accuracy and completeness matter more than brevity.`

const extractPrompt = `This is a document's OCR output in Markdown:

%s

Convert this into a sensible structured JSON response. The output should be strictly JSON with no extra commentary.`

// Converter is the remote surface the pipeline depends on. Tests provide
// deterministic stubs.
type Converter interface {
	ConvertDocument(ctx context.Context, data []byte, media document.MediaType, name string) (string, error)
	ExtractStructured(ctx context.Context, markdown string) (models.StructuredData, error)
}

// Client implements Converter against an OpenAI-compatible endpoint.
type Client struct {
	api             openai.Client
	ocrModel        string
	structuredModel string
	limiter         *rate.Limiter
	log             logger.Logger
}

// NewClient builds a client from configuration. The limiter is scoped to
// the client, so concurrent chunk calls share one throughput budget.
func NewClient(cfg config.Config, log logger.Logger) *Client {
	return &Client{
		api: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.BaseURL),
		),
		ocrModel:        cfg.OCRModel,
		structuredModel: cfg.StructuredModel,
		limiter:         rate.NewLimiter(rate.Limit(tokensPerSecond), burstTokens),
		log:             log,
	}
}

// ConvertDocument submits document bytes for recognition and returns the
// recognized Markdown.
func (c *Client) ConvertDocument(ctx context.Context, data []byte, media document.MediaType, name string) (string, error) {
	if err := c.limiter.WaitN(ctx, estimateTokens(len(data))); err != nil {
		return "", err
	}

	var filePart responses.ResponseInputContentUnionParam
	switch media {
	case document.MediaPDF:
		encoded := base64.StdEncoding.EncodeToString(data)
		filePart = responses.ResponseInputContentUnionParam{
			OfInputFile: &responses.ResponseInputFileParam{
				FileData: openai.String("data:application/pdf;base64," + encoded),
				Filename: openai.String(name),
			},
		}
	case document.MediaImage:
		encoded := base64.StdEncoding.EncodeToString(data)
		dataURL := fmt.Sprintf("data:%s;base64,%s", document.ImageMIMEType(name, data), encoded)
		filePart = responses.ResponseInputContentUnionParam{
			OfInputImage: &responses.ResponseInputImageParam{
				ImageURL: openai.String(dataURL),
				Detail:   responses.ResponseInputImageDetailAuto,
			},
		}
	default:
		return "", fmt.Errorf("cannot submit media type %q for recognition", media)
	}

	c.log.Debug("Submitting %s (%d bytes) to model %s", name, len(data), c.ocrModel)
	response, err := c.api.Responses.New(ctx, responses.ResponseNewParams{
		Model: shared.ResponsesModel(c.ocrModel),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(
					responses.ResponseInputMessageContentListParam{
						filePart,
						responses.ResponseInputContentParamOfInputText(ocrPrompt),
					},
					"user",
				),
			},
		},
	})
	if err != nil {
		return "", err
	}
	return response.OutputText(), nil
}

// ExtractStructured feeds recognized Markdown through the structured
// model and returns the JSON tree it produced.
func (c *Client) ExtractStructured(ctx context.Context, markdown string) (models.StructuredData, error) {
	if err := c.limiter.WaitN(ctx, estimateTokens(len(markdown))); err != nil {
		return nil, err
	}

	c.log.Debug("Extracting structured data with model %s (%d chars of Markdown)", c.structuredModel, len(markdown))
	response, err := c.api.Responses.New(ctx, responses.ResponseNewParams{
		Model: shared.ResponsesModel(c.structuredModel),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(
					responses.ResponseInputMessageContentListParam{
						responses.ResponseInputContentParamOfInputText(fmt.Sprintf(extractPrompt, markdown)),
					},
					"user",
				),
			},
		},
	})
	if err != nil {
		return nil, err
	}

	raw := StripJSONFences(response.OutputText())
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("model returned invalid JSON: %.120s", raw)
	}
	return models.StructuredData(raw), nil
}

// StripJSONFences removes a surrounding Markdown code fence, which models
// sometimes add despite instructions.
func StripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func estimateTokens(size int) int {
	tokens := size / bytesPerToken
	if tokens < minCallTokens {
		return minCallTokens
	}
	return tokens
}

// IsTransient classifies a remote failure. Server faults, rate limiting
// and transport errors are worth retrying; authentication, malformed
// requests and unknown models are not. Context errors never retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 408, apiErr.StatusCode == 429:
			return true
		case apiErr.StatusCode >= 500:
			return true
		default:
			return false
		}
	}

	// Some SDK paths surface rate limiting as plain errors.
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"rate limit", "rate_limit_exceeded", "too many requests", "429"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	// Everything else without a status code is a transport-level fault.
	return true
}
