package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
)

func testFirestoreClient(t *testing.T) *firestore.Client {
	t.Helper()
	projectID := os.Getenv("FIRESTORE_PROJECT")
	if projectID == "" {
		t.Skip("FIRESTORE_PROJECT not set, skipping Firestore tests")
	}
	client, err := firestore.NewClient(context.Background(), projectID)
	if err != nil {
		t.Fatalf("failed to create Firestore client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// uniqueCollection isolates a test run in its own collection.
func uniqueCollection(t *testing.T) string {
	return fmt.Sprintf("test-%d", time.Now().UnixNano())
}

// cleanupCollection deletes every document of the store and its revisions.
func cleanupCollection(t *testing.T, s *FirestoreStore) {
	t.Helper()
	ctx := context.Background()

	docs := s.client.Collection(s.collection).Documents(ctx)
	defer docs.Stop()
	for {
		snap, err := docs.Next()
		if err != nil {
			break
		}
		revs := s.revisionsCollection(snap.Ref.ID).Documents(ctx)
		for {
			rev, err := revs.Next()
			if err != nil {
				break
			}
			rev.Ref.Delete(ctx)
		}
		revs.Stop()
		snap.Ref.Delete(ctx)
	}
}

func TestFirestoreStore(t *testing.T) {
	client := testFirestoreClient(t)
	testDocumentStore(t, func(t *testing.T) DocumentStore {
		s := NewFirestoreStore(client, uniqueCollection(t))
		t.Cleanup(func() { cleanupCollection(t, s) })
		return s
	})
}

func TestFirestoreStore_DefaultCollection(t *testing.T) {
	s := NewFirestoreStore(nil, "")
	if s.collection != DefaultCollection {
		t.Errorf("collection = %q, want %q", s.collection, DefaultCollection)
	}
	if got := zeroPad(42); got != "0000000042" {
		t.Errorf("zeroPad(42) = %q", got)
	}
}
