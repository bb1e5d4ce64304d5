package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const proofFolder = "payment-proofs"

// CloudinaryService implements Service over a Cloudinary account.
type CloudinaryService struct {
	cld  *cloudinary.Cloudinary
	http *http.Client
}

// NewCloudinaryService builds the storage service from account credentials.
func NewCloudinaryService(cloudName, apiKey, apiSecret string) (*CloudinaryService, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("cloudinary credentials not set in configuration")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	return &CloudinaryService{
		cld:  cld,
		http: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// UploadPaymentProof stores the proof image and returns its public id and URL.
func (s *CloudinaryService) UploadPaymentProof(ctx context.Context, data []byte, fileName string) (string, string, error) {
	result, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:   proofFolder,
		PublicID: fileName,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload payment proof: %w", err)
	}
	if result.PublicID == "" {
		return "", "", fmt.Errorf("no public ID returned for payment proof")
	}
	return result.PublicID, result.SecureURL, nil
}

// Fetch reads the stored image bytes back for the multipart submission.
func (s *CloudinaryService) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment proof: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment proof fetch returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Delete removes a stored proof given its public id.
func (s *CloudinaryService) Delete(ctx context.Context, publicID string) error {
	if _, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID}); err != nil {
		return fmt.Errorf("failed to delete payment proof: %w", err)
	}
	return nil
}
