package main

import (
	"context"
	"fmt"

	"aws-examples-api/internal/config"
	"aws-examples-api/internal/lambdaapi"
	"aws-examples-api/internal/observability/logger"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Run as an AWS Lambda function",
	Long:  `Serve API Gateway proxy events with the same routes as the HTTP server. Intended as the function's entrypoint command.`,
	RunE:  runLambda,
}

func init() {
	rootCmd.AddCommand(lambdaCmd)
}

func runLambda(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.OTELServiceName, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	log.Info(ctx, "starting lambda handler",
		zap.String("service", cfg.OTELServiceName),
		zap.String("table", cfg.DynamoDBTable),
	)

	// lambda.Start only returns if the runtime API is unreachable
	lambda.Start(lambdaapi.NewAdapter(app.router, log).Handle)
	return nil
}
