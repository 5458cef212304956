package agent

import (
	"context"
	"slices"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// Tool is a function the model may call. It answers in markdown.
type Tool struct {
	Name        string
	Description string
	Params      map[string]*genai.Schema
	Required    []string
	Run         func(ctx context.Context, args map[string]any) (string, error)
}

func (t Tool) declaration() *genai.FunctionDeclaration {
	d := &genai.FunctionDeclaration{
		Name:        t.Name,
		Description: t.Description,
		Response:    &genai.Schema{Type: genai.TypeString, Description: "A markdown answer."},
	}
	if len(t.Params) > 0 {
		d.Parameters = &genai.Schema{Type: genai.TypeObject, Properties: t.Params, Required: t.Required}
	}
	return d
}

func declarations(tools []Tool) []*genai.FunctionDeclaration {
	ds := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		ds[i] = t.declaration()
	}
	return ds
}

// invoke runs the tool named by call. Errors go back to the model as text.
func invoke(ctx context.Context, tools []Tool, call *genai.FunctionCall) *genai.FunctionResponse {
	resp := &genai.FunctionResponse{ID: call.ID, Name: call.Name}
	i := slices.IndexFunc(tools, func(t Tool) bool { return t.Name == call.Name })
	if i < 0 {
		logrus.WithField("function", call.Name).Warn("model called an unknown function")
		resp.Response = map[string]any{"error": "unknown function " + call.Name}
		return resp
	}
	out, err := tools[i].Run(ctx, call.Args)
	if err != nil {
		resp.Response = map[string]any{"error": err.Error()}
		return resp
	}
	resp.Response = map[string]any{"output": out}
	return resp
}
