package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// BlobInfo is a listing entry of the media container.
type BlobInfo struct {
	Name string
	Size int64
}

// Container is the subset of a blob container we need.
type Container interface {
	List(ctx context.Context) ([]BlobInfo, error)
	Download(ctx context.Context, name string, w io.Writer) (int64, error)
	// Upload creates or overwrites the named blob.
	Upload(ctx context.Context, name string, r io.Reader) error
}

// Opener turns a SAS URL into a Container.
type Opener func(ctx context.Context, sasURL string) (Container, error)

// OpenSAS is the default Opener, talking to Azure Blob Storage.
func OpenSAS(ctx context.Context, sasURL string) (Container, error) {
	client, err := container.NewClientWithNoCredential(sasURL, nil)
	if err != nil {
		// the SAS URL is a credential; don't echo it
		return nil, fmt.Errorf("media: couldn't create container client: %w", err)
	}
	return &azureContainer{client: client}, nil
}

type azureContainer struct {
	client *container.Client
}

func (a *azureContainer) List(ctx context.Context) ([]BlobInfo, error) {
	blobs := []BlobInfo{}

	pager := a.client.NewListBlobsFlatPager(nil)
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("media: couldn't list blobs: %w", err)
		}
		if resp.Segment == nil {
			continue
		}
		for _, item := range resp.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			info := BlobInfo{Name: *item.Name}
			if item.Properties != nil && item.Properties.ContentLength != nil {
				info.Size = *item.Properties.ContentLength
			}
			blobs = append(blobs, info)
		}
	}

	return blobs, nil
}

func (a *azureContainer) Download(ctx context.Context, name string, w io.Writer) (int64, error) {
	resp, err := a.client.NewBlobClient(name).DownloadStream(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("media: couldn't download %s: %w", name, err)
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("media: couldn't read %s: %w", name, err)
	}
	return n, nil
}

func (a *azureContainer) Upload(ctx context.Context, name string, r io.Reader) error {
	var opts *blockblob.UploadStreamOptions
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		opts = &blockblob.UploadStreamOptions{
			HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &ct},
		}
	}

	if _, err := a.client.NewBlockBlobClient(name).UploadStream(ctx, r, opts); err != nil {
		return fmt.Errorf("media: couldn't upload %s: %w", name, err)
	}
	return nil
}
