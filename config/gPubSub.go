package config

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

// UploadStatusMessage is published when an upload job reaches a terminal
// status, so downstream dashboards can refresh without polling.
type UploadStatusMessage struct {
	UploadId      int       `json:"upload_id"`
	SourceType    string    `json:"source_type"`
	Status        string    `json:"status"`
	Message       string    `json:"message"`
	RowsInserted  int       `json:"rows_inserted"`
	FinishedAt    time.Time `json:"finished_at"`
	CorrelationId string    `json:"correlation_id"`
}

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

func init() {
	// Load env from .env
	godotenv.Load()
}

func getPubSubProjectID() string {
	// Prefer explicit override.
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run/Cloud Functions often set this.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

func getPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	if pubsubClient != nil {
		c := pubsubClient
		pubsubClientMu.Unlock()
		return c, nil
	}
	pubsubClientMu.Unlock()

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON")

	var (
		c   *pubsub.Client
		err error
	)
	if credJSON != "" {
		c, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
	} else {
		// Uses Application Default Credentials (Cloud Run service account or GOOGLE_APPLICATION_CREDENTIALS).
		c, err = pubsub.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, err
	}

	pubsubClientMu.Lock()
	if pubsubClient == nil {
		pubsubClient = c
	} else {
		// Another goroutine won the race; close ours.
		_ = c.Close()
	}
	c2 := pubsubClient
	pubsubClientMu.Unlock()
	return c2, nil
}

func uploadStatusTopicName() string {
	if v := os.Getenv("UPLOAD_STATUS_TOPIC"); v != "" {
		return v
	}
	return "upload-status"
}

// PublishUploadStatus is best-effort: job state in MySQL is the source of
// truth, so publish failures are logged and swallowed.
func PublishUploadStatus(ctx context.Context, msg UploadStatusMessage) {
	if getPubSubProjectID() == "" {
		return
	}

	client, err := getPubSubClient(ctx)
	if err != nil {
		log.Printf("pubsub client unavailable; dropping upload status event (upload_id=%d): %v", msg.UploadId, err)
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to marshal upload status event (upload_id=%d): %v", msg.UploadId, err)
		return
	}

	topic := client.Topic(uploadStatusTopicName())
	defer topic.Stop()

	pubCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := topic.Publish(pubCtx, &pubsub.Message{Data: data}).Get(pubCtx); err != nil {
		log.Printf("failed to publish upload status event (upload_id=%d): %v", msg.UploadId, err)
	}
}
