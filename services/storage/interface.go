package storage

import "context"

// Service stores payment-proof images and hands their bytes back at
// submission time.
type Service interface {
	UploadPaymentProof(ctx context.Context, data []byte, fileName string) (publicID, url string, err error)
	Fetch(ctx context.Context, url string) ([]byte, error)
	Delete(ctx context.Context, publicID string) error
}
