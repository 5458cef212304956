package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// chatter is the part of *genai.Chat an expert talks to.
type chatter interface {
	Send(ctx context.Context, parts ...*genai.Part) (*genai.GenerateContentResponse, error)
}

// maxRounds bounds the tool calls an expert makes for one question.
const maxRounds = 8

// Expert is a chat with a model playing one role.
type Expert struct {
	Name        string
	Description string // what the facilitator knows about this expert
	Model       string
	Instruction string
	Search      bool // ground the answers on Google Search
	Tools       []Tool
	chat        chatter
}

func (e *Expert) config() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: e.Instruction}}},
	}
	if len(e.Tools) > 0 {
		cfg.Tools = append(cfg.Tools, &genai.Tool{FunctionDeclarations: declarations(e.Tools)})
	}
	if e.Search {
		cfg.Tools = append(cfg.Tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
	}
	return cfg
}

// Open creates the chat of e.
func (e *Expert) Open(ctx context.Context, client *genai.Client) error {
	chat, err := client.Chats.Create(ctx, e.Model, e.config(), nil)
	if err != nil {
		return err
	}
	e.chat = chat
	return nil
}

// Ask sends question and runs the tools the model calls until it answers
// with text.
func (e *Expert) Ask(ctx context.Context, question string) (string, error) {
	if e.chat == nil {
		return "", fmt.Errorf("no chat open with %s", e.Name)
	}
	parts := []*genai.Part{{Text: question}}
	for range maxRounds {
		resp, err := e.chat.Send(ctx, parts...)
		if err != nil {
			return "", fmt.Errorf("%s: %w", e.Name, err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", fmt.Errorf("no response from %s", e.Name)
		}

		var answer strings.Builder
		var replies []*genai.Part
		for _, p := range resp.Candidates[0].Content.Parts {
			switch {
			case p.FunctionCall != nil:
				replies = append(replies, &genai.Part{FunctionResponse: invoke(ctx, e.Tools, p.FunctionCall)})
			case p.Text != "":
				answer.WriteString(p.Text)
			}
		}
		if len(replies) == 0 {
			if answer.Len() == 0 {
				return "", fmt.Errorf("no response from %s", e.Name)
			}
			return answer.String(), nil
		}
		parts = replies
	}
	return "", fmt.Errorf("%s called tools for more than %d rounds", e.Name, maxRounds)
}

// Consult exposes e as a tool taking a question, for the facilitator.
func (e *Expert) Consult() Tool {
	return Tool{
		Name:        e.Name,
		Description: e.Description,
		Params: map[string]*genai.Schema{
			"question": {Type: genai.TypeString, Description: "The question to ask the expert."},
		},
		Required: []string{"question"},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			question, ok := args["question"].(string)
			if !ok {
				return "", fmt.Errorf("argument 'question' is not a string as expected but %T", args["question"])
			}
			answer, err := e.Ask(ctx, question)
			if err != nil {
				return "", err
			}
			logrus.WithFields(logrus.Fields{"expert": e.Name, "question": question}).Debug(answer)
			return answer, nil
		},
	}
}
