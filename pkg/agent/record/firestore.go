package record

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const defaultConversationsCollection = "conversations"

// FirestoreSink stores each conversation as a document in a Firestore
// collection.
type FirestoreSink struct {
	client     *firestore.Client
	collection string
}

// firestoreConversation is the document shape written to Firestore.
type firestoreConversation struct {
	ID        string           `firestore:"id"`
	Title     string           `firestore:"title"`
	CallType  string           `firestore:"callType"`
	StartTime time.Time        `firestore:"startTime"`
	Duration  string           `firestore:"duration"`
	Entries   []firestoreEntry `firestore:"entries"`
	SavedAt   time.Time        `firestore:"savedAt"`
}

type firestoreEntry struct {
	Speaker   string    `firestore:"speaker"`
	Text      string    `firestore:"text"`
	Timestamp time.Time `firestore:"timestamp"`
}

// NewFirestoreSink initializes a Firebase app and Firestore client.
// Credentials come from FIREBASE_CREDENTIALS_JSON, FIREBASE_CREDENTIALS_FILE,
// or application default credentials, in that order.
func NewFirestoreSink(ctx context.Context, collection string) (*FirestoreSink, error) {
	var (
		app *firebase.App
		err error
	)
	if credJSON := os.Getenv("FIREBASE_CREDENTIALS_JSON"); credJSON != "" {
		app, err = firebase.NewApp(ctx, nil, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("FIREBASE_CREDENTIALS_FILE"); credFile != "" {
		app, err = firebase.NewApp(ctx, nil, option.WithCredentialsFile(credFile))
	} else {
		app, err = firebase.NewApp(ctx, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firestore client: %w", err)
	}
	if strings.TrimSpace(collection) == "" {
		collection = defaultConversationsCollection
	}
	return &FirestoreSink{client: client, collection: collection}, nil
}

func (s *FirestoreSink) Name() string {
	return "firestore"
}

// Save writes one conversation document keyed by a fresh UUID.
func (s *FirestoreSink) Save(ctx context.Context, conv Conversation) error {
	doc := firestoreConversation{
		ID:        uuid.New().String(),
		Title:     conv.Title,
		CallType:  conv.CallType,
		StartTime: conv.StartTime,
		Duration:  conv.DurationString(),
		SavedAt:   time.Now(),
		Entries:   make([]firestoreEntry, 0, len(conv.Entries)),
	}
	for _, e := range conv.Entries {
		doc.Entries = append(doc.Entries, firestoreEntry{
			Speaker:   string(e.Speaker),
			Text:      e.Text,
			Timestamp: e.Timestamp,
		})
	}

	if _, err := s.client.Collection(s.collection).Doc(doc.ID).Set(ctx, doc); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

// Close releases the underlying Firestore client.
func (s *FirestoreSink) Close() error {
	return s.client.Close()
}
