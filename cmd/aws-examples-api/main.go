package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "aws-examples-api",
	Short: "AWS Examples API - greeting service behind an ALB",
	Long:  `Serves a greeting stored in DynamoDB together with the user identity forwarded by an Application Load Balancer, over HTTP or as a Lambda function.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
