package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	gwconfig "github.com/avvvet/timeline-services/internal/gatewaysvc/config"
	"github.com/avvvet/timeline-services/internal/gatewaysvc/db"
	"github.com/avvvet/timeline-services/internal/gatewaysvc/store"
)

type tableDef struct {
	name      string
	schema    store.KeySchema
	attrTypes [2]types.ScalarAttributeType // partition, sort
}

func tableDefs(c gwconfig.Config) []tableDef {
	return []tableDef{
		{
			name:      c.CardTable,
			schema:    store.KeySchema{PartitionKey: "uuid", SortKey: "ts"},
			attrTypes: [2]types.ScalarAttributeType{types.ScalarAttributeTypeN, types.ScalarAttributeTypeS},
		},
		{
			name:      c.MediaTable,
			schema:    store.KeySchema{PartitionKey: "ts", SortKey: "name"},
			attrTypes: [2]types.ScalarAttributeType{types.ScalarAttributeTypeS, types.ScalarAttributeTypeS},
		},
	}
}

func connect(c gwconfig.Config) (*dynamodb.Client, error) {
	client, err := db.Connect(db.Options{
		Region:      c.Region,
		Endpoint:    c.Endpoint,
		MaxAttempts: c.StoreMaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return client, nil
}

// openTables returns the cards and media tables for the configured backend.
func openTables(c gwconfig.Config) (store.Table, store.Table, error) {
	defs := tableDefs(c)

	switch c.Backend {
	case gwconfig.BackendMemory:
		log.Warnf("using the in-memory store, records are lost on exit")
		return store.NewMemoryTable(defs[0].name, defs[0].schema),
			store.NewMemoryTable(defs[1].name, defs[1].schema), nil
	case gwconfig.BackendDynamoDB:
		client, err := connect(c)
		if err != nil {
			return nil, nil, err
		}
		return store.NewDynamoTable(client, defs[0].name, defs[0].schema, c.StoreTimeout),
			store.NewDynamoTable(client, defs[1].name, defs[1].schema, c.StoreTimeout), nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", c.Backend)
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Manage the DynamoDB tables",
}

var waitForTables time.Duration

var tablesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the cards and media tables if they do not exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connect(cfg)
		if err != nil {
			return err
		}
		for _, def := range tableDefs(cfg) {
			if err := createTable(cmd.Context(), client, def, waitForTables); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	tablesCreateCmd.Flags().DurationVar(&waitForTables, "wait", 2*time.Minute, "How long to wait for a new table to become active")
	tablesCmd.AddCommand(tablesCreateCmd)
	rootCmd.AddCommand(tablesCmd)
}

func createTable(ctx context.Context, client *dynamodb.Client, def tableDef, wait time.Duration) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(def.name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(def.schema.PartitionKey), AttributeType: def.attrTypes[0]},
			{AttributeName: aws.String(def.schema.SortKey), AttributeType: def.attrTypes[1]},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(def.schema.PartitionKey), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(def.schema.SortKey), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})

	var inUse *types.ResourceInUseException
	switch {
	case errors.As(err, &inUse):
		log.Infof("table %s already exists", def.name)
		return nil
	case err != nil:
		return fmt.Errorf("failed to create table %s: %w", def.name, err)
	}

	log.Infof("table %s created, waiting for it to become active", def.name)
	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(def.name)}, wait); err != nil {
		return fmt.Errorf("table %s did not become active: %w", def.name, err)
	}
	return nil
}
