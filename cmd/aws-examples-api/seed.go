package main

import (
	"context"
	"fmt"
	"time"

	"aws-examples-api/internal/config"
	"aws-examples-api/internal/database"
	"aws-examples-api/internal/domain"
	"aws-examples-api/internal/repo"

	"github.com/spf13/cobra"
)

// DefaultSeedMessage is written by seed when --message is not given
const DefaultSeedMessage = "Happy AWS learning!"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the greeting record to DynamoDB",
	Long:  `Create or overwrite the message item the API serves. The table itself must already exist.`,
	RunE:  runSeed,
}

var (
	seedMessage string
	seedID      int64
)

func init() {
	seedCmd.Flags().StringVar(&seedMessage, "message", DefaultSeedMessage, "greeting text to store")
	seedCmd.Flags().Int64Var(&seedID, "id", -1, "item id (defaults to MESSAGE_ID)")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	id := cfg.MessageID
	if seedID >= 0 {
		id = seedID
	}

	db, err := database.NewDynamoDB(cfg.AWSRegion, cfg.DynamoDBEndpoint)
	if err != nil {
		return fmt.Errorf("failed to create dynamodb client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	messages := repo.NewMessageRepository(db, cfg.DynamoDBTable)
	if err := messages.Put(ctx, domain.Message{ID: id, Text: seedMessage}); err != nil {
		return fmt.Errorf("failed to seed message: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s id=%d: %q\n", messages.Table(), id, seedMessage)
	return nil
}
