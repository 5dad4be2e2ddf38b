package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/intake-guard/internal/core"
	"github.com/mikey/intake-guard/internal/utils"
)

type fakeRuntime struct {
	input *bedrockruntime.InvokeModelInput
	body  string
	err   error
}

func (f *fakeRuntime) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func newClient(rt *fakeRuntime, modelID string) *BedrockClient {
	logger := zap.NewNop()
	return NewBedrockClient(rt, modelID, 0.9, 4096, logger, utils.NewTextProcessor(logger))
}

var prompt = core.Prompt{System: "Tu es un assistant", User: "Bonjour", Temperature: 0.7, MaxTokens: 300}

func TestCompleteClaude(t *testing.T) {
	rt := &fakeRuntime{body: `{"content":[{"type":"text","text":"Salut "},{"type":"text","text":"!"}]}`}
	c := newClient(rt, "anthropic.claude-3-haiku-20240307-v1:0")

	out, err := c.Complete(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, "Salut !", out)

	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", *rt.input.ModelId)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(rt.input.Body, &sent))
	assert.Equal(t, anthropicVersion, sent["anthropic_version"])
	assert.Equal(t, "Tu es un assistant", sent["system"])
	assert.EqualValues(t, 300, sent["max_tokens"])
	assert.Len(t, sent["messages"], 1)
}

func TestCompleteTitan(t *testing.T) {
	rt := &fakeRuntime{body: `{"results":[{"outputText":"Merci"}]}`}
	c := newClient(rt, "amazon.titan-text-express-v1")

	out, err := c.Complete(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, "Merci", out)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(rt.input.Body, &sent))
	assert.Equal(t, "Tu es un assistant\n\nBonjour", sent["inputText"])

	rt.body = `{"results":[]}`
	_, err = c.Complete(context.Background(), prompt)
	assert.Error(t, err)
}

func TestCompleteGenericModel(t *testing.T) {
	rt := &fakeRuntime{body: `{"generation":"Bonjour à vous"}`}
	c := newClient(rt, "meta.llama3-8b-instruct-v1:0")

	out, err := c.Complete(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, "Bonjour à vous", out)
}

func TestCompleteInvokeError(t *testing.T) {
	c := newClient(&fakeRuntime{err: errors.New("AccessDeniedException")}, "anthropic.claude-v2")
	_, err := c.Complete(context.Background(), prompt)
	assert.ErrorContains(t, err, "AccessDeniedException")
}
