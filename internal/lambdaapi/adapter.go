package lambdaapi

import (
	"context"
	"fmt"
	"net/http"

	"aws-examples-api/internal/observability/logger"
	"aws-examples-api/internal/observability/requestid"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"go.uber.org/zap"
)

// Adapter serves API Gateway proxy events through an http.Handler, so the
// Lambda deployment shares the router of the HTTP server.
type Adapter struct {
	core.RequestAccessor

	handler http.Handler
	log     *logger.Logger
}

// NewAdapter creates an Adapter for handler
func NewAdapter(handler http.Handler, log *logger.Logger) *Adapter {
	return &Adapter{handler: handler, log: log}
}

// Handle is the function passed to lambda.Start
func (a *Adapter) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req, err := a.Request(ctx, event)
	if err != nil {
		a.log.Error(ctx, "failed to convert proxy event",
			logger.Module("lambda"),
			logger.Action("convert_request"),
			zap.String("path", event.Path),
			zap.Error(err),
		)
		return events.APIGatewayProxyResponse{
			StatusCode:        http.StatusBadRequest,
			MultiValueHeaders: map[string][]string{"Content-Type": {"application/json"}},
			Body:              `{"ok":false,"error":{"code":"BAD_REQUEST","message":"invalid proxy event"}}`,
		}, nil
	}

	w := core.NewProxyResponseWriter()
	a.handler.ServeHTTP(w, req)

	resp, err := w.GetProxyResponse()
	if err != nil {
		// nothing was written; net/http answers 200 in that case
		return events.APIGatewayProxyResponse{
			StatusCode:        http.StatusOK,
			MultiValueHeaders: map[string][]string{},
		}, nil
	}
	return resp, nil
}

// Request converts a proxy event into an http.Request carrying the Lambda
// and API Gateway contexts. The API Gateway request id becomes X-Request-Id
// unless the caller sent one.
func (a *Adapter) Request(ctx context.Context, event events.APIGatewayProxyRequest) (*http.Request, error) {
	req, err := a.EventToRequestWithContext(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("convert proxy event: %w", err)
	}

	if id := event.RequestContext.RequestID; id != "" && req.Header.Get(requestid.HeaderRequestID) == "" {
		req.Header.Set(requestid.HeaderRequestID, id)
	}
	return req, nil
}
