package insight

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type chatResponse struct {
	Choices []chatChoice `json:"choices" validate:"required,min=1"`
}

type chatChoice struct {
	Message chatMessageBody `json:"message"`
}

type chatMessageBody struct {
	Content string `json:"content" validate:"required"`
}

// parseChatResponse decodes a chat-completion body and returns the first
// choice's content, failing with ErrMalformedResponse.
func parseChatResponse(data []byte) (string, error) {
	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := validate.Struct(resp); err != nil {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	first := resp.Choices[0]
	first.Message.Content = strings.TrimSpace(first.Message.Content)
	if err := validate.Struct(first.Message); err != nil {
		return "", fmt.Errorf("%w: empty content", ErrMalformedResponse)
	}
	return first.Message.Content, nil
}
