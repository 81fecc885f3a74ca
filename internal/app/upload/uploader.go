/*
Package upload sends payment proof images to the room service's upload endpoint.

It validates the file client-side (size bound and image-type allow-list mirroring
the service's constraints) so obviously bad files fail fast, then performs the
multipart POST and returns the stored attachment descriptor.
*/
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"splitroom/internal/app/identity"
	"splitroom/internal/app/room"
	"splitroom/internal/pkg/errs"
	"splitroom/internal/pkg/logx"
)

const (
	// MaxProofSizeMB is the maximum allowed proof file size in megabytes.
	MaxProofSizeMB = 5

	// MaxProofSize is the maximum allowed proof file size in bytes.
	MaxProofSize = MaxProofSizeMB * 1024 * 1024

	// uploadTimeout bounds the upload request.
	uploadTimeout = 30 * time.Second
)

// ExtToMIME maps accepted file extensions to their MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ValidateProofFile checks the file name and size against the accepted image types
// and the size bound before any bytes are sent.
func ValidateProofFile(filename string, size int64) error {
	if size <= 0 || size > MaxProofSize {
		return errs.NewError(errs.ErrFileSizeTooLarge)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := ExtToMIME[ext]; !ok {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	return nil
}

// proofWire is the attachment descriptor shape returned by the upload endpoint.
type proofWire struct {
	ID        string `json:"id"`
	FileURL   string `json:"fileUrl"`
	CreatedAt int64  `json:"createdAt"`
}

// Uploader is the REST client for the proof upload endpoint.
type Uploader struct {
	baseURL string
	id      identity.Identity
	client  *http.Client
	logger  zerolog.Logger
}

// NewUploader constructs an Uploader against the service's REST base URL.
func NewUploader(baseURL string, id identity.Identity) *Uploader {
	uploaderLogger := logx.Logger().With().
		Str("component", "ProofUploader").
		Logger()

	return &Uploader{
		baseURL: strings.TrimRight(baseURL, "/"),
		id:      id,
		client:  &http.Client{Timeout: uploadTimeout},
		logger:  uploaderLogger,
	}
}

// Validate checks the file name and size before any bytes are sent.
func (u *Uploader) Validate(filename string, size int64) error {
	return ValidateProofFile(filename, size)
}

// Upload validates and sends one proof file to POST /proofs/{roomID} as a multipart
// body and returns the stored attachment descriptor. Any failure is surfaced to the
// caller; nothing is retried here.
func (u *Uploader) Upload(ctx context.Context, roomID, filename string, r io.Reader, size int64) (room.Proof, error) {
	if err := ValidateProofFile(filename, size); err != nil {
		return room.Proof{}, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return room.Proof{}, errs.NewError(errs.ErrUploadFailed)
	}

	if _, err := io.Copy(part, io.LimitReader(r, MaxProofSize)); err != nil {
		u.logger.Error().Err(err).Msg("Reading proof file failed.")
		return room.Proof{}, errs.NewError(errs.ErrUploadFailed)
	}

	if err := writer.Close(); err != nil {
		return room.Proof{}, errs.NewError(errs.ErrUploadFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/proofs/"+roomID, &body)
	if err != nil {
		return room.Proof{}, errs.NewError(errs.ErrUploadFailed)
	}
	req.Header.Set("Authorization", "Bearer "+u.id.Token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	res, err := u.client.Do(req)
	if err != nil {
		u.logger.Error().Err(err).Str("room_id", roomID).Msg("Proof upload request failed.")
		return room.Proof{}, errs.NewError(errs.ErrUploadFailed)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return room.Proof{}, errs.NewError(errs.ErrUnauthorized)
	}

	if res.StatusCode != http.StatusOK {
		u.logger.Warn().Int("status", res.StatusCode).Msg("Proof upload rejected.")
		return room.Proof{}, errs.NewError(errs.ErrUploadFailed)
	}

	var env struct {
		Code int `json:"code"`
		Data struct {
			Proof proofWire `json:"proof"`
		} `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil || env.Code != 0 {
		u.logger.Error().Err(err).Int("code", env.Code).Msg("Malformed upload response.")
		return room.Proof{}, errs.NewError(errs.ErrUploadFailed)
	}

	u.logger.Info().
		Str("proof_id", env.Data.Proof.ID).
		Str("room_id", roomID).
		Msg("Proof uploaded.")

	return room.Proof{
		ID:        env.Data.Proof.ID,
		FileURL:   env.Data.Proof.FileURL,
		CreatedAt: time.UnixMilli(env.Data.Proof.CreatedAt),
	}, nil
}
