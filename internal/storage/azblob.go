package storage

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureConfig holds the storage account used for azblob:// destinations.
type AzureConfig struct {
	AccountURL string // e.g. "https://<account>.blob.core.windows.net/"
}

// AzureSink uploads fetched files to an Azure Blob Storage container.
type AzureSink struct {
	client    *azblob.Client
	container string
	prefix    string
	compress  bool
}

// NewAzureSink authenticates with the default Azure credential chain
// (environment, workload identity, managed identity, az CLI).
func NewAzureSink(cfg AzureConfig, container, prefix string, compress bool) (*AzureSink, error) {
	if cfg.AccountURL == "" {
		return nil, fmt.Errorf("azblob destination needs SQLSTEAL_AZURE_ACCOUNT_URL")
	}
	if container == "" {
		return nil, fmt.Errorf("azblob destination needs a container")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load Azure credentials: %w", err)
	}
	return newAzureSink(cfg.AccountURL, cred, container, prefix, compress)
}

func newAzureSink(accountURL string, cred azcore.TokenCredential, container, prefix string, compress bool) (*AzureSink, error) {
	client, err := azblob.NewClient(accountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}
	return &AzureSink{
		client:    client,
		container: container,
		prefix:    prefix,
		compress:  compress,
	}, nil
}

// BlobName returns the blob remotePath is uploaded to.
func (s *AzureSink) BlobName(remotePath string) string {
	return objectKey(s.prefix, remotePath, s.compress)
}

func (s *AzureSink) Store(ctx context.Context, content []byte, remotePath string) (string, error) {
	if s.compress {
		var err error
		if content, err = compress(content); err != nil {
			return "", err
		}
	}

	name := s.BlobName(remotePath)
	if _, err := s.client.UploadBuffer(ctx, s.container, name, content, nil); err != nil {
		return "", fmt.Errorf("failed to upload %s to Azure: %w", name, err)
	}
	return fmt.Sprintf("azblob://%s/%s", s.container, name), nil
}
