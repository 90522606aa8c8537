package bedrock

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"

	"compliance-backend/internal/llm"
	"compliance-backend/internal/shared/telemetry"
)

// API is the subset of the Bedrock agent runtime client used here.
type API interface {
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

// Client implements llm.Client with knowledge-base retrieval and generation.
type Client struct {
	api             API
	knowledgeBaseID string
	modelARN        string
}

// NewClient loads the default AWS config and builds a Client.
func NewClient(ctx context.Context, region, knowledgeBaseID, modelARN string) (*Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if strings.TrimSpace(region) != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return New(bedrockagentruntime.NewFromConfig(cfg), knowledgeBaseID, modelARN)
}

// New builds a Client around an existing API implementation.
func New(api API, knowledgeBaseID, modelARN string) (*Client, error) {
	if strings.TrimSpace(knowledgeBaseID) == "" {
		return nil, fmt.Errorf("BEDROCK_KNOWLEDGE_BASE_ID is required")
	}
	if strings.TrimSpace(modelARN) == "" {
		return nil, fmt.Errorf("BEDROCK_MODEL_ARN is required")
	}
	return &Client{api: api, knowledgeBaseID: knowledgeBaseID, modelARN: modelARN}, nil
}

// Analyze sends the compliance prompt for transcript and returns the generated text.
func (c *Client) Analyze(ctx context.Context, transcript string) (string, error) {
	prompt := llm.BuildAnalysisPrompt(transcript)
	out, err := c.api.RetrieveAndGenerate(ctx, &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &types.RetrieveAndGenerateInput{Text: aws.String(prompt)},
		RetrieveAndGenerateConfiguration: &types.RetrieveAndGenerateConfiguration{
			Type: types.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: &types.KnowledgeBaseRetrieveAndGenerateConfiguration{
				KnowledgeBaseId: aws.String(c.knowledgeBaseID),
				ModelArn:        aws.String(c.modelARN),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock retrieve and generate: %w", err)
	}
	if out == nil || out.Output == nil || strings.TrimSpace(aws.ToString(out.Output.Text)) == "" {
		return "", llm.ErrEmptyResponse
	}

	text := aws.ToString(out.Output.Text)
	telemetry.Info("llm.response", map[string]any{
		"provider":       "bedrock",
		"prompt_chars":   len(prompt),
		"response_chars": len(text),
		"session_id":     aws.ToString(out.SessionId),
	})
	return text, nil
}

var _ llm.Client = (*Client)(nil)
