package bedrock

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/wire"
)

// Client wraps the SDK's bedrockruntime.Client with the SigV4 credential
// resolution the gateway's Target carries: static keys when present on
// Target.ExtraFields, otherwise the ambient provider chain (environment,
// shared config, instance role).
type Client struct {
	sdk *bedrockruntime.Client
}

// NewClient resolves AWS credentials for a target and returns a ready
// Bedrock runtime client.
func NewClient(ctx context.Context, target dialect.Target, region string) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(region))

	if id, secret := target.ExtraFields["access_key_id"], target.ExtraFields["secret_access_key"]; id != "" && secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(id, secret, target.ExtraFields["session_token"]),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("bedrock: loading aws config: %w", err)
	}

	return &Client{sdk: bedrockruntime.NewFromConfig(cfg)}, nil
}

// Converse sends a non-streaming chat completion through Bedrock's Converse
// API and normalizes the result into a canonical Response.
func (c *Client) Converse(ctx context.Context, req *wire.Request, target dialect.Target, body map[string]interface{}) (*wire.Response, error) {
	messages, err := converseMessages(body)
	if err != nil {
		return nil, err
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(target.Model),
		Messages: messages,
	}

	if system, ok := body["system"].(string); ok && system != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: system}}
	}

	inference := &types.InferenceConfiguration{}
	configured := false
	if ic, ok := body["inferenceConfig"].(map[string]interface{}); ok {
		if mt, ok := ic["maxTokens"].(int); ok {
			inference.MaxTokens = aws.Int32(int32(mt))
			configured = true
		}
		if t, ok := ic["temperature"].(float64); ok {
			inference.Temperature = aws.Float32(float32(t))
			configured = true
		}
		if tp, ok := ic["topP"].(float64); ok {
			inference.TopP = aws.Float32(float32(tp))
			configured = true
		}
	}
	if configured {
		input.InferenceConfig = inference
	}

	out, err := c.sdk.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock: converse: %w", err)
	}

	result := ConverseOutput{StopReason: string(out.StopReason)}
	if msg, ok := out.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			if text, ok := block.(*types.ContentBlockMemberText); ok {
				result.Content += text.Value
			}
		}
	}
	if out.Usage != nil {
		result.InputTokens = int(aws.ToInt32(out.Usage.InputTokens))
		result.OutputTokens = int(aws.ToInt32(out.Usage.OutputTokens))
	}

	return TransformConverseOutput(result, target.Model, req), nil
}

func converseMessages(body map[string]interface{}) ([]types.Message, error) {
	raw, ok := body["messages"].([]converseMessage)
	if !ok {
		return nil, fmt.Errorf("bedrock: messages not transformed")
	}
	out := make([]types.Message, len(raw))
	for i, m := range raw {
		role := types.ConversationRoleUser
		if m.Role == "assistant" {
			role = types.ConversationRoleAssistant
		}
		out[i] = types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		}
	}
	return out, nil
}
