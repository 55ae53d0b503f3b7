package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const defaultImageKitAPIURL = "https://api.imagekit.io/v1"

// MediaStore abstracts the external media host so handlers and middleware can
// request deletions without knowing the transport.
type MediaStore interface {
	DeleteFile(ctx context.Context, fileID string) error
	BulkDelete(ctx context.Context, fileIDs []string) error
}

// ImageKitService talks to the ImageKit REST API.
type ImageKitService struct {
	publicKey   string
	privateKey  string
	urlEndpoint string
	baseURL     string
	httpClient  *http.Client
}

// NewImageKitService creates an ImageKit client. urlEndpoint is the
// account's media-serving base URL handed to browser-side uploaders.
func NewImageKitService(publicKey, privateKey, urlEndpoint string) *ImageKitService {
	return &ImageKitService{
		publicKey:   publicKey,
		privateKey:  privateKey,
		urlEndpoint: urlEndpoint,
		baseURL:     defaultImageKitAPIURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// UploadAuthParams is the short-lived credential handed to browser-side uploads.
type UploadAuthParams struct {
	Token       string `json:"token"`
	Expire      int64  `json:"expire"`
	Signature   string `json:"signature"`
	PublicKey   string `json:"publicKey"`
	URLEndpoint string `json:"urlEndpoint"`
}

// UploadAuth produces signed client-upload parameters valid for 30 minutes.
func (s *ImageKitService) UploadAuth() UploadAuthParams {
	token := uuid.New().String()
	expire := time.Now().Add(30 * time.Minute).Unix()

	mac := hmac.New(sha1.New, []byte(s.privateKey))
	mac.Write([]byte(token + strconv.FormatInt(expire, 10)))

	return UploadAuthParams{
		Token:       token,
		Expire:      expire,
		Signature:   hex.EncodeToString(mac.Sum(nil)),
		PublicKey:   s.publicKey,
		URLEndpoint: s.urlEndpoint,
	}
}

// DeleteFile removes a single media object from the host.
func (s *ImageKitService) DeleteFile(ctx context.Context, fileID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL+"/files/"+fileID, nil)
	if err != nil {
		return fmt.Errorf("create ImageKit delete request: %w", err)
	}

	return s.do(req)
}

type bulkDeleteRequest struct {
	FileIDs []string `json:"fileIds"`
}

// BulkDelete removes several media objects in one request.
func (s *ImageKitService) BulkDelete(ctx context.Context, fileIDs []string) error {
	if len(fileIDs) == 0 {
		return nil
	}

	body, err := json.Marshal(bulkDeleteRequest{FileIDs: fileIDs})
	if err != nil {
		return fmt.Errorf("marshal ImageKit bulk delete payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/files/batch/deleteByFileIds", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create ImageKit bulk delete request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return s.do(req)
}

func (s *ImageKitService) do(req *http.Request) error {
	req.SetBasicAuth(s.privateKey, "")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("imagekit returned status %d", resp.StatusCode)
	}

	return nil
}

// CleanupMedia requests deletion of media objects after the primary mutation
// has committed. Failures are logged and dropped; they never reach the caller
// and are never retried.
func CleanupMedia(ctx context.Context, store MediaStore, fileIDs ...string) {
	if store == nil || len(fileIDs) == 0 {
		return
	}

	var err error
	if len(fileIDs) == 1 {
		err = store.DeleteFile(ctx, fileIDs[0])
	} else {
		err = store.BulkDelete(ctx, fileIDs)
	}

	if err != nil {
		log.Printf("[ImageKit] Failed to delete media %v: %v", fileIDs, err)
	}
}
