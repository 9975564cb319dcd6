// internal/adapter/media/gridfs.go

package media

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
)

// GridFSBackend stores objects in a MongoDB GridFS bucket. Keys are the full
// path-style object names, kept as GridFS filenames.
type GridFSBackend struct {
	db *mongo.Database
}

// NewGridFSBackend creates a GridFS-backed object store
func NewGridFSBackend(client *mongo.Client, dbName string) *GridFSBackend {
	return &GridFSBackend{db: client.Database(dbName)}
}

// Put writes an object under the given key
func (b *GridFSBackend) Put(ctx context.Context, key string, data []byte) error {
	bucket, err := gridfs.NewBucket(b.db)
	if err != nil {
		return fmt.Errorf("opening bucket: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		bucket.SetWriteDeadline(deadline)
	}

	stream, err := bucket.OpenUploadStream(key)
	if err != nil {
		return fmt.Errorf("opening upload stream for %s: %w", key, err)
	}
	defer stream.Close()

	if _, err := io.Copy(stream, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}

	return nil
}

// Get reads an object back by key
func (b *GridFSBackend) Get(ctx context.Context, key string) ([]byte, error) {
	bucket, err := gridfs.NewBucket(b.db)
	if err != nil {
		return nil, fmt.Errorf("opening bucket: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		bucket.SetReadDeadline(deadline)
	}

	stream, err := bucket.OpenDownloadStreamByName(key)
	if err != nil {
		return nil, fmt.Errorf("opening download stream for %s: %w", key, err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}

	return data, nil
}

// Delete removes every stored revision of the key
func (b *GridFSBackend) Delete(ctx context.Context, key string) error {
	bucket, err := gridfs.NewBucket(b.db)
	if err != nil {
		return fmt.Errorf("opening bucket: %w", err)
	}

	cursor, err := bucket.Find(bson.M{"filename": key})
	if err != nil {
		return fmt.Errorf("finding %s: %w", key, err)
	}
	defer cursor.Close(ctx)

	deleted := false
	for cursor.Next(ctx) {
		var file struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&file); err != nil {
			return fmt.Errorf("decoding file record for %s: %w", key, err)
		}

		if err := bucket.Delete(file.ID); err != nil {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
		deleted = true
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("iterating file records for %s: %w", key, err)
	}

	if !deleted {
		return fmt.Errorf("object %s not found", key)
	}
	return nil
}
