package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const meterPrompt = "Get the numerical (only numbers) value for measuring water, gas, electricity. " +
	"Make a formatted and simple answer, without text e.g. measurement: 123456 (only numbers)"

// Inference is the best-effort result of reading a meter image.
// Value is nil when the answer contained no number.
type Inference struct {
	Value *int64
	Raw   string
}

// Engine reads meter values through Gemini
type Engine struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewEngine creates a Gemini client authenticated with apiKey
func NewEngine(ctx context.Context, apiKey, model string, timeout time.Duration, logger *zap.Logger) (*Engine, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Engine{
		client:  cl,
		model:   strings.TrimSpace(model),
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Name identifies the engine in logs and metrics
func (e *Engine) Name() string { return "gemini" }

// Close releases the underlying client
func (e *Engine) Close() error {
	return e.client.Close()
}

// ReadMeter sends the image inline with the numeric prompt. There are no retries.
func (e *Engine) ReadMeter(ctx context.Context, image []byte, mimeType string) (Inference, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	m := e.client.GenerativeModel(e.model)
	m.SetTemperature(0)

	start := time.Now()
	resp, err := m.GenerateContent(ctx,
		&genai.Blob{MIMEType: mimeType, Data: image},
		genai.Text(meterPrompt),
	)
	observeInference(e.Name(), err, time.Since(start))
	if err != nil {
		return Inference{}, fmt.Errorf("gemini generate content: %w", err)
	}

	// An empty answer (e.g. a blocked candidate) is stored like an unreadable one
	txt := strings.TrimSpace(firstText(resp))
	out := Inference{Raw: txt, Value: ParseMeasureValue(txt)}
	if out.Value == nil {
		e.logger.Warn("no numeric value in inference answer",
			zap.String("model", e.model),
			zap.String("answer", txt),
		)
	}
	return out, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}
