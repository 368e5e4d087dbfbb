package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"voxelmotion.ai/internal/persistence/r2s3"
)

// buildMirror returns nil when mirroring is disabled. A nil *r2s3.Mirror ignores Enqueue.
func buildMirror(dataDir string, logger *log.Logger) (*r2s3.Mirror, error) {
	if !envBool("MOTIOND_S3_MIRROR", false) {
		return nil, nil
	}
	endpoint := strings.TrimSpace(os.Getenv("MOTIOND_S3_ENDPOINT"))
	bucket := strings.TrimSpace(os.Getenv("MOTIOND_S3_BUCKET"))
	accessKeyID := strings.TrimSpace(os.Getenv("MOTIOND_S3_ACCESS_KEY_ID"))
	secretAccessKey := strings.TrimSpace(os.Getenv("MOTIOND_S3_SECRET_ACCESS_KEY"))
	if endpoint == "" || bucket == "" || accessKeyID == "" || secretAccessKey == "" {
		return nil, fmt.Errorf("MOTIOND_S3_MIRROR=true but MOTIOND_S3_ENDPOINT/MOTIOND_S3_BUCKET/MOTIOND_S3_ACCESS_KEY_ID/MOTIOND_S3_SECRET_ACCESS_KEY are not fully set")
	}
	client, err := r2s3.New(endpoint, bucket, accessKeyID, secretAccessKey, r2s3.WithRegion(os.Getenv("MOTIOND_S3_REGION")))
	if err != nil {
		return nil, err
	}
	return r2s3.NewMirror(client, dataDir, os.Getenv("MOTIOND_S3_PREFIX"), r2s3.MirrorConfig{
		Workers: envInt("MOTIOND_S3_UPLOAD_WORKERS", 2),
	}, logger), nil
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
