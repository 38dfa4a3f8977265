package chatapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"curator/internal/llm"
)

// Params are the sampling settings sent with every request. Nil fields are
// omitted so the backend default applies.
type Params struct {
	Temperature      *float64
	TopP             *float64
	MaxTokens        int
	ResponseMIMEType string
}

// Adapter is an llm.Provider over an OpenAI-compatible chat completion API.
// Media support is declared per category; anything else fails with
// llm.ErrUnsupportedMedia before any request is made.
type Adapter struct {
	client       *Client
	name         string
	model        string
	params       Params
	systemPrompt string
	media        map[llm.MediaCategory]bool
}

// AdapterConfig describes an Adapter.
type AdapterConfig struct {
	Name         string
	Model        string
	Params       Params
	SystemPrompt string
	Media        []llm.MediaCategory
}

// NewAdapter wraps client as a named provider.
func NewAdapter(client *Client, cfg AdapterConfig) *Adapter {
	media := make(map[llm.MediaCategory]bool, len(cfg.Media))
	for _, category := range cfg.Media {
		media[category] = true
	}
	return &Adapter{
		client:       client,
		name:         cfg.Name,
		model:        strings.TrimSpace(cfg.Model),
		params:       cfg.Params,
		systemPrompt: strings.TrimSpace(cfg.SystemPrompt),
		media:        media,
	}
}

func (a *Adapter) Name() string         { return a.name }
func (a *Adapter) DefaultModel() string { return a.model }

func (a *Adapter) IsRateLimited(err error) bool { return llm.IsRateLimited(err) }

// Supports reports whether the adapter accepts media of category.
func (a *Adapter) Supports(category llm.MediaCategory) bool { return a.media[category] }

func (a *Adapter) GenerateText(ctx context.Context, model string, prompt llm.Prompt) (llm.Response, error) {
	content := make([]ContentPart, 0, len(prompt.Parts))
	for _, part := range prompt.Parts {
		if part.IsFile() {
			// Remote images are the only file references chat completion accepts.
			if llm.CategoryForMIME(part.MIMEType) != llm.MediaImage || !a.Supports(llm.MediaImage) {
				return llm.Response{}, llm.UnsupportedMedia(a.name, llm.CategoryForMIME(part.MIMEType))
			}
			content = append(content, ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: part.FileURI}})
			continue
		}
		content = append(content, ContentPart{Type: "text", Text: part.Text})
	}
	return a.complete(ctx, model, content)
}

func (a *Adapter) GenerateWithMedia(ctx context.Context, model string, prompt llm.Prompt, mediaPath string) (llm.Response, error) {
	category, mimeType, err := llm.DetectMediaCategory(mediaPath)
	if err != nil {
		return llm.Response{}, &llm.GenerationError{Provider: a.name, Model: a.resolveModel(model), Err: err}
	}
	if !a.Supports(category) {
		return llm.Response{}, llm.UnsupportedMedia(a.name, category)
	}
	data, err := os.ReadFile(mediaPath)
	if err != nil {
		return llm.Response{}, &llm.GenerationError{Provider: a.name, Model: a.resolveModel(model), Err: fmt.Errorf("read media: %w", err)}
	}
	encoded := base64.StdEncoding.EncodeToString(data)

	content := []ContentPart{{Type: "text", Text: prompt.String()}}
	switch category {
	case llm.MediaImage:
		content = append(content, ContentPart{
			Type:     "image_url",
			ImageURL: &ImageURL{URL: fmt.Sprintf("data:%s;base64,%s", mimeType, encoded)},
		})
	case llm.MediaAudio:
		content = append(content, ContentPart{
			Type:       "input_audio",
			InputAudio: &InputAudio{Data: encoded, Format: audioFormat(mediaPath, mimeType)},
		})
	default:
		return llm.Response{}, llm.UnsupportedMedia(a.name, category)
	}
	return a.complete(ctx, model, content)
}

func (a *Adapter) complete(ctx context.Context, model string, content []ContentPart) (llm.Response, error) {
	model = a.resolveModel(model)
	messages := make([]Message, 0, 2)
	if a.systemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: a.systemPrompt})
	}
	var userContent any = content
	if len(content) == 1 && content[0].Type == "text" {
		userContent = content[0].Text
	}
	messages = append(messages, Message{Role: "user", Content: userContent})

	req := Request{
		Model:       model,
		Messages:    messages,
		Temperature: a.params.Temperature,
		TopP:        a.params.TopP,
		MaxTokens:   a.params.MaxTokens,
	}
	if a.params.ResponseMIMEType == "application/json" {
		req.ResponseFormat = map[string]string{"type": "json_object"}
	}

	text, completion, err := a.client.Complete(ctx, req)
	if err != nil {
		return llm.Response{}, err
	}
	resp := llm.NewResponse(text, completion)
	resp.Model = model
	return resp, nil
}

func (a *Adapter) resolveModel(model string) string {
	if model = strings.TrimSpace(model); model != "" {
		return model
	}
	return a.model
}

func audioFormat(path, mimeType string) string {
	switch {
	case strings.Contains(mimeType, "wav"):
		return "wav"
	case strings.Contains(mimeType, "mpeg"):
		return "mp3"
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
