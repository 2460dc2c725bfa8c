package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"github.com/linkysync/linkysync/pkg/log"
	"github.com/linkysync/linkysync/pkg/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. Each granularity is a document under
// datasets/<datasetID>/series holding the series as a JSON string.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
	datasetID string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")
	datasetID := lflag.String("firestore-dataset-id", "default", "Document ID of the dataset in the datasets collection")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database
		f.datasetID = *datasetID

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// project ID can be inferred from the environment
	if f.datasetID == "" {
		return errors.New("firestore dataset id is required")
	}
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) datasetDoc() *firestore.DocumentRef {
	return f.client.Collection("datasets").Doc(f.datasetID)
}

// LoadDataset reads every series document and the dataset document.
func (f *FirestoreProvider) LoadDataset(ctx context.Context) (types.Dataset, error) {
	var ds types.Dataset

	doc, err := f.datasetDoc().Get(ctx)
	if err != nil {
		if status.Code(err) != codes.NotFound {
			return types.Dataset{}, fmt.Errorf("failed to fetch dataset doc: %w", err)
		}
	} else if v, err := doc.DataAt("update"); err == nil {
		if s, ok := v.(string); ok {
			ds.Updated = s
		}
	}

	iter := f.datasetDoc().Collection("series").Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return types.Dataset{}, fmt.Errorf("failed to iterate series: %w", err)
		}

		g, err := types.ParseGranularity(doc.Ref.ID)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "skipping unknown series doc", slog.String("id", doc.Ref.ID))
			continue
		}

		val, err := doc.DataAt("json")
		if err != nil {
			return types.Dataset{}, fmt.Errorf("%w: series %s missing 'json' field: %v", ErrInvalidDataset, doc.Ref.ID, err)
		}
		jsonStr, ok := val.(string)
		if !ok {
			return types.Dataset{}, fmt.Errorf("%w: series %s 'json' field is not a string", ErrInvalidDataset, doc.Ref.ID)
		}

		var s types.Series
		if err := json.Unmarshal([]byte(jsonStr), &s); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal series json", slog.String("id", doc.Ref.ID), slog.Any("err", err))
			return types.Dataset{}, fmt.Errorf("%w: failed to unmarshal series %s: %v", ErrInvalidDataset, doc.Ref.ID, err)
		}
		ds.SetSeries(g, s)
	}
	return ds, nil
}

// SaveDataset writes one document per non-nil series and then the dataset
// document with the update timestamp.
func (f *FirestoreProvider) SaveDataset(ctx context.Context, ds types.Dataset) error {
	now := time.Now()
	for _, g := range types.Granularities {
		s := ds.Series(g)
		if s == nil {
			continue
		}
		jsonBytes, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", g, err)
		}
		_, err = f.datasetDoc().Collection("series").Doc(g.String()).Set(ctx, map[string]interface{}{
			"json":    string(jsonBytes),
			"count":   len(s),
			"updated": now,
		})
		if err != nil {
			return fmt.Errorf("failed to save %s: %w", g, err)
		}
	}

	_, err := f.datasetDoc().Set(ctx, map[string]interface{}{
		"update":  ds.Updated,
		"updated": now,
	})
	if err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	return nil
}
