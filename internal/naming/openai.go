package naming

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

const DefaultOpenAIModel = "gpt-4o-mini"

const openAIInstructions = "You name periods of someone's music listening history. Respond only with the requested JSON."

var namingSchema = generateSchema[Naming]()

// OpenAI generates text with the OpenAI Responses API, constrained to the
// Naming JSON schema.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI returns an OpenAI generator. Extra options (such as
// option.WithBaseURL) are passed to the client.
func NewOpenAI(apiKey, model string, opts ...option.RequestOption) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAI{client: &client, model: model}
}

func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	params := responses.ResponseNewParams{
		Model:        o.model,
		Instructions: openai.String(openAIInstructions),
		Temperature:  openai.Float(req.Temperature),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Prompt, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        "EraNaming",
					Schema:      namingSchema,
					Strict:      openai.Bool(true),
					Description: openai.String("Era title and summary"),
					Type:        "json_schema",
				},
			},
		},
	}
	if req.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && statusTransient(apiErr.StatusCode) {
			return "", fmt.Errorf("%w: openai: %v", ErrTransient, err)
		}
		return "", fmt.Errorf("openai: %w", err)
	}
	return resp.OutputText(), nil
}

func generateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	b, err := reflector.Reflect(v).MarshalJSON()
	if err != nil {
		panic(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	// Strict mode rejects these.
	delete(m, "$schema")
	delete(m, "$id")
	m["additionalProperties"] = false
	return m
}
