package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

func stringSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}
}

func errorSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type: &openapi3.Types{"object"},
		Properties: openapi3.Schemas{
			"error":             stringSchema(),
			"error_description": stringSchema(),
		},
		Required: []string{"error", "error_description"},
	}}
}

func jsonResponse(description string, schema *openapi3.SchemaRef) *openapi3.ResponseRef {
	response := openapi3.NewResponse().WithDescription(description)
	if schema != nil {
		response.Content = openapi3.NewContentWithJSONSchemaRef(schema)
	}
	return &openapi3.ResponseRef{Value: response}
}

func errorResponses(codes ...int) []openapi3.NewResponsesOption {
	opts := make([]openapi3.NewResponsesOption, 0, len(codes))
	for _, code := range codes {
		opts = append(opts, openapi3.WithStatus(code, jsonResponse(http.StatusText(code), errorSchema())))
	}
	return opts
}

const bearerScheme = "operatorToken"

func operatorSecurity() *openapi3.SecurityRequirements {
	return openapi3.NewSecurityRequirements().With(openapi3.NewSecurityRequirement().Authenticate(bearerScheme))
}

// NewOpenAPIDocument describes the HTTP surface and validates the result.
func NewOpenAPIDocument(version string) (*openapi3.T, error) {
	login := &openapi3.Operation{
		OperationID: "beginAuthorization",
		Summary:     "Start linking an account to a webhook",
		Parameters: openapi3.Parameters{
			{Value: openapi3.NewQueryParameter("webhook").WithRequired(true).WithSchema(stringSchema().Value)},
		},
		Responses: openapi3.NewResponses(append([]openapi3.NewResponsesOption{
			openapi3.WithStatus(http.StatusFound, jsonResponse("Redirect to the provider's consent page", nil)),
		}, errorResponses(http.StatusBadRequest, http.StatusBadGateway, http.StatusInternalServerError)...)...),
	}

	callback := &openapi3.Operation{
		OperationID: "completeAuthorization",
		Summary:     "Provider redirect target",
		Parameters: openapi3.Parameters{
			{Value: openapi3.NewQueryParameter("code").WithSchema(stringSchema().Value)},
			{Value: openapi3.NewQueryParameter("state").WithRequired(true).WithSchema(stringSchema().Value)},
			{Value: openapi3.NewQueryParameter("error").WithSchema(stringSchema().Value)},
		},
		Responses: openapi3.NewResponses(append([]openapi3.NewResponsesOption{
			openapi3.WithStatus(http.StatusOK, jsonResponse("Webhook linked", &openapi3.SchemaRef{Value: &openapi3.Schema{
				Type: &openapi3.Types{"object"},
				Properties: openapi3.Schemas{
					"status":   stringSchema(),
					"relay_id": stringSchema(),
				},
			}})),
		}, errorResponses(
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusGone,
			http.StatusExpectationFailed,
			http.StatusFailedDependency,
			http.StatusInternalServerError,
		)...)...),
	}

	relayID := openapi3.Parameters{{Value: openapi3.NewPathParameter("id").WithSchema(stringSchema().Value)}}
	relayPost := &openapi3.Operation{
		OperationID: "relayMessage",
		Summary:     "Forward the request body to the relay's webhook",
		Parameters:  relayID,
		RequestBody: &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
			WithRequired(true).
			WithContent(openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{"application/json", "text/plain"}))},
		Responses: openapi3.NewResponses(append([]openapi3.NewResponsesOption{
			openapi3.WithStatus(http.StatusOK, jsonResponse("Delivered", nil)),
		}, errorResponses(
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusRequestEntityTooLarge,
			http.StatusFailedDependency,
			http.StatusBadGateway,
		)...)...),
	}
	relayDelete := &openapi3.Operation{
		OperationID: "deactivateRelay",
		Summary:     "Remove a relay",
		Parameters:  relayID,
		Responses: openapi3.NewResponses(append([]openapi3.NewResponsesOption{
			openapi3.WithStatus(http.StatusNoContent, jsonResponse("Removed", nil)),
		}, errorResponses(http.StatusUnauthorized, http.StatusNotFound)...)...),
		Security: operatorSecurity(),
	}

	health := &openapi3.Operation{
		OperationID: "health",
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Service is up", nil)),
		),
	}

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "monzo2discord",
			Description: "Relays Monzo account events to Discord webhooks",
			Version:     version,
		},
		Components: &openapi3.Components{
			SecuritySchemes: openapi3.SecuritySchemes{
				bearerScheme: &openapi3.SecuritySchemeRef{Value: openapi3.NewSecurityScheme().
					WithType("http").
					WithScheme("bearer").
					WithDescription("server.api_token")},
			},
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath("/login", &openapi3.PathItem{Get: login}),
			openapi3.WithPath("/oauth/callback", &openapi3.PathItem{Get: callback}),
			openapi3.WithPath("/relay/{id}", &openapi3.PathItem{Post: relayPost, Delete: relayDelete}),
			openapi3.WithPath("/health", &openapi3.PathItem{Get: health}),
		),
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
}
