package client

import (
	"context"

	"cloud.google.com/go/storage"
)

// StorageClient wraps the Google Cloud Storage client used to mirror output
// artifacts (§6.4).
type StorageClient struct {
	client     *storage.Client
	bucketName string
}

// NewStorageClient creates a new storage client.
func NewStorageClient(ctx context.Context, bucketName string) (*StorageClient, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	return &StorageClient{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// Upload uploads data to cloud storage.
func (c *StorageClient) Upload(ctx context.Context, objectName string, data []byte) (string, error) {
	bucket := c.client.Bucket(c.bucketName)
	obj := bucket.Object(objectName)
	w := obj.NewWriter(ctx)

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", err
	}

	if err := w.Close(); err != nil {
		return "", err
	}

	// Return the public URL
	return "gs://" + c.bucketName + "/" + objectName, nil
}
