// Package llm wraps the model provider used for suggestion generation
// and audio processing.
package llm

import (
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Provider is the model invocation surface the services depend on
type Provider interface {
	// Chat sends a system instruction and user input and returns the
	// model's text completion.
	Chat(ctx context.Context, instructions, input string) (string, error)
	// Transcribe converts uploaded audio to text.
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
	// Speech synthesizes spoken audio (mp3) for the given text.
	Speech(ctx context.Context, text, voice string) ([]byte, error)
}

// OpenAIProvider implements Provider on the OpenAI API
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates an OpenAI-backed provider. baseURL may
// point at any OpenAI-compatible endpoint.
func NewOpenAIProvider(baseURL, apiKey, model string) *OpenAIProvider {
	options := []option.RequestOption{}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		options = append(options, option.WithAPIKey(apiKey))
	}

	client := openai.NewClient(options...)
	return &OpenAIProvider{client: &client, model: model}
}

// Chat implements Provider
func (p *OpenAIProvider) Chat(ctx context.Context, instructions, input string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(instructions),
			openai.UserMessage(input),
		},
		Model: p.model,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("provider returned no content choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// Transcribe implements Provider
func (p *OpenAIProvider) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	resp, err := p.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  audio,
		Model: openai.AudioModelWhisper1,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed for %s: %w", filename, err)
	}
	return resp.Text, nil
}

// Speech implements Provider
func (p *OpenAIProvider) Speech(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = "alloy"
	}
	resp, err := p.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model: openai.SpeechModelTTS1,
		Input: text,
		Voice: openai.AudioSpeechNewParamsVoice(voice),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
