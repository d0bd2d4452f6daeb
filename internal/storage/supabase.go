package storage

import (
	"bytes"
	"fmt"

	"github.com/supabase-community/supabase-go"
)

// Uploader is the piece of storage the telephony layer needs: put bytes
// under a key and forget about them.
type Uploader interface {
	Upload(key, contentType string, data []byte) error
}

type Config struct {
	URL            string
	ServiceRoleKey string
	Bucket         string
}

// Supabase uploads call recordings into one Supabase Storage bucket.
type Supabase struct {
	client *supabase.Client
	bucket string
}

func NewSupabase(cfg Config) (*Supabase, error) {
	client, err := supabase.NewClient(cfg.URL, cfg.ServiceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Supabase{client: client, bucket: cfg.Bucket}, nil
}

func (s *Supabase) Upload(key, contentType string, data []byte) error {
	_, err := s.client.Storage.UploadFile(s.bucket, key, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("upload %s to supabase: %w", key, err)
	}
	return nil
}
