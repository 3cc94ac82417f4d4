package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultCollection is the Firestore collection used when none is given.
const DefaultCollection = "documents"

// FirestoreStore is a Firestore-backed implementation of DocumentStore.
// Revisions live in a "revisions" subcollection keyed by zero-padded
// version.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore creates a FirestoreStore over collection, or
// DefaultCollection when it is empty.
func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &FirestoreStore{
		client:     client,
		collection: collection,
	}
}

func (s *FirestoreStore) docRef(id string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(id)
}

func (s *FirestoreStore) revisionsCollection(docID string) *firestore.CollectionRef {
	return s.docRef(docID).Collection("revisions")
}

func zeroPad(version int) string {
	return fmt.Sprintf("%010d", version)
}

func (s *FirestoreStore) Create(ctx context.Context, id, content string) error {
	now := time.Now().UTC()
	_, err := s.docRef(id).Create(ctx, map[string]any{
		"content":   content,
		"version":   0,
		"createdAt": now,
		"updatedAt": now,
	})
	if status.Code(err) == codes.AlreadyExists {
		return exists(id)
	}
	return err
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*DocumentInfo, error) {
	snap, err := s.docRef(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	return snapshotToDocInfo(id, snap), nil
}

func snapshotToDocInfo(id string, snap *firestore.DocumentSnapshot) *DocumentInfo {
	data := snap.Data()
	content, _ := data["content"].(string)
	version, _ := data["version"].(int64)
	createdAt, _ := data["createdAt"].(time.Time)
	updatedAt, _ := data["updatedAt"].(time.Time)
	return &DocumentInfo{
		ID:        id,
		Content:   content,
		Version:   int(version),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

func (s *FirestoreStore) List(ctx context.Context) ([]DocumentInfo, error) {
	iter := s.client.Collection(s.collection).OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var result []DocumentInfo
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		result = append(result, *snapshotToDocInfo(snap.Ref.ID, snap))
	}
	return result, nil
}

func (s *FirestoreStore) UpdateContent(ctx context.Context, id, content string, version int) error {
	_, err := s.docRef(id).Update(ctx, []firestore.Update{
		{Path: "content", Value: content},
		{Path: "version", Value: version},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if status.Code(err) == codes.NotFound {
		return notFound(id)
	}
	return err
}

// AppendRevision checks the last stored version and writes the new
// revision in one transaction.
func (s *FirestoreStore) AppendRevision(ctx context.Context, id string, rev Revision) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(s.docRef(id)); err != nil {
			if status.Code(err) == codes.NotFound {
				return notFound(id)
			}
			return err
		}

		last := s.revisionsCollection(id).OrderBy(firestore.DocumentID, firestore.Desc).Limit(1)
		snaps, err := tx.Documents(last).GetAll()
		if err != nil {
			return err
		}
		want := 1
		if len(snaps) > 0 {
			want = snapshotToRevision(snaps[0]).Version + 1
		}
		if rev.Version != want {
			return revisionConflict(id, rev.Version, want)
		}

		return tx.Create(s.revisionsCollection(id).Doc(zeroPad(rev.Version)), map[string]any{
			"version":    rev.Version,
			"content":    rev.Content,
			"words":      rev.Words,
			"characters": rev.Characters,
			"savedAt":    rev.SavedAt,
		})
	})
}

func (s *FirestoreStore) GetRevisions(ctx context.Context, id string, fromVersion int) ([]Revision, error) {
	// Verify document exists.
	_, err := s.docRef(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}

	iter := s.revisionsCollection(id).
		OrderBy(firestore.DocumentID, firestore.Asc).
		StartAfter(zeroPad(max(fromVersion, 0))).
		Documents(ctx)
	defer iter.Stop()

	revs := []Revision{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		revs = append(revs, snapshotToRevision(snap))
	}
	return revs, nil
}

func snapshotToRevision(snap *firestore.DocumentSnapshot) Revision {
	data := snap.Data()
	version, _ := data["version"].(int64)
	content, _ := data["content"].(string)
	words, _ := data["words"].(int64)
	chars, _ := data["characters"].(int64)
	savedAt, _ := data["savedAt"].(time.Time)
	return Revision{
		Version:    int(version),
		Content:    content,
		Words:      int(words),
		Characters: int(chars),
		SavedAt:    savedAt,
	}
}
