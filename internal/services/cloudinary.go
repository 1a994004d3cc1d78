package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

var ErrArchiveDisabled = errors.New("report archive is not configured")

// ReportArchive stores generated reports and returns a download URL.
type ReportArchive interface {
	Store(ctx context.Context, fileName string, content []byte) (string, error)
}

type CloudinaryArchive struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryArchive(cloudName, apiKey, apiSecret, folder string) (*CloudinaryArchive, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryArchive{cld: cld, folder: folder}, nil
}

// Store uploads content as a raw asset named after fileName.
func (a *CloudinaryArchive) Store(ctx context.Context, fileName string, content []byte) (string, error) {
	publicID := fileName
	if i := strings.LastIndex(publicID, "."); i > 0 {
		publicID = publicID[:i]
	}

	result, err := a.cld.Upload.Upload(ctx, bytes.NewReader(content), uploader.UploadParams{
		Folder:       a.folder,
		PublicID:     publicID,
		ResourceType: "raw",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected upload: %s", result.Error.Message)
	}
	return result.SecureURL, nil
}
