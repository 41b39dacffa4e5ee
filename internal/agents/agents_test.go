package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGenerator struct{ mock.Mock }

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func TestPlannerAgent_Decompose(t *testing.T) {
	const command = "--nl create repo"
	prompt := "Decompose NL command into Git subtasks. Respond JSON {'subtasks': [...] }.\nCommand: " + command

	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{"valid", `{"subtasks": ["git_init", "commit"]}`, []string{"git_init", "commit"}},
		{"fenced", "```json\n{\"subtasks\": [\"git_init\"]}\n```", []string{"git_init"}},
		{"empty list", `{"subtasks": []}`, []string{}},
		{"missing key", `{"steps": ["a"]}`, []string{command}},
		{"not json", "sure, here you go", []string{command}},
		{"wrong type", `{"subtasks": "git_init"}`, []string{command}},
		{"null", `{"subtasks": null}`, []string{command}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &mockGenerator{}
			gen.On("Generate", mock.Anything, prompt).Return(tt.response, nil).Once()

			got, err := NewPlannerAgent(gen).Decompose(context.Background(), command)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			gen.AssertExpectations(t)
		})
	}
}

func TestPlannerAgent_GenerateError(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("offline"))

	_, err := NewPlannerAgent(gen).Decompose(context.Background(), "x")

	assert.ErrorContains(t, err, "offline")
}

func TestDebugAgent_RePlan(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, "Re-plan for error: install missing deps and retry").
		Return("run pip install", nil).Once()

	plan, err := NewDebugAgent(gen).RePlan(context.Background(), "install missing deps and retry", "ctx")

	require.NoError(t, err)
	assert.Equal(t, "run pip install", plan)
	gen.AssertExpectations(t)

	failing := &mockGenerator{}
	failing.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("boom"))
	_, err = NewDebugAgent(failing).RePlan(context.Background(), "replan NL parse", "ctx")
	assert.Error(t, err)
}

func TestLLMAgent_Generate(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, "explain error").Return("it broke", nil).Once()

	out, err := NewLLMAgent(gen).Generate(context.Background(), "explain error")

	require.NoError(t, err)
	assert.Equal(t, "it broke", out)
}
