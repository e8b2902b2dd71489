package aisvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/mwalimux/elimisha/core"
	"github.com/mwalimux/elimisha/core/course"
)

var groqURL = "https://api.groq.com/openai/v1/chat/completions"

// groqService generates course descriptions with Groq's
// OpenAI-compatible chat completions API.
type groqService struct {
	key    string
	model  string
	client *http.Client
}

var _ course.DescriptionGenerator = (*groqService)(nil)

func NewGroqService(conf *core.Config) *groqService {
	return &groqService{
		key:    conf.GroqAPIKey,
		model:  conf.GroqModel,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type (
	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	chatRequest struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}

	chatResponse struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
)

func (svc groqService) GenerateDescription(ctx context.Context, name, difficulty string) (string, error) {
	prompt := fmt.Sprintf(
		"Write a concise, engaging description (2 to 3 sentences) for an online course named %q at %s level. "+
			"Respond with the description only.",
		name, difficulty,
	)
	body, err := json.Marshal(chatRequest{
		Model: svc.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "encoding chat request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, groqURL, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "creating chat request")
	}
	req.Header.Set("Authorization", "Bearer "+svc.key)
	req.Header.Set("Content-Type", "application/json")

	res, err := svc.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "calling chat completions API")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return "", errors.Errorf("chat completions API responded %d", res.StatusCode)
	}

	var cr chatResponse
	if err = json.NewDecoder(res.Body).Decode(&cr); err != nil {
		return "", errors.Wrap(err, "decoding chat response")
	}
	if len(cr.Choices) == 0 {
		return "", errors.New("chat completions API returned no choices")
	}
	return core.CleanString(cr.Choices[0].Message.Content), nil
}
