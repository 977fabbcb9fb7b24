package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"dilemmarena.ai/internal/persistence/s3mirror"
)

// openRunMirror returns nil unless ARENA_MIRROR is set. Match log parts and
// the manifest are uploaded as they are completed.
func openRunMirror(dataDir string, logger *log.Logger) (*s3mirror.Mirror, error) {
	if !envBool("ARENA_MIRROR", false) {
		return nil, nil
	}
	cfg := s3mirror.ClientConfig{
		Endpoint:        strings.TrimSpace(os.Getenv("ARENA_MIRROR_ENDPOINT")),
		Bucket:          strings.TrimSpace(os.Getenv("ARENA_MIRROR_BUCKET")),
		AccessKeyID:     strings.TrimSpace(os.Getenv("ARENA_MIRROR_ACCESS_KEY_ID")),
		SecretAccessKey: strings.TrimSpace(os.Getenv("ARENA_MIRROR_SECRET_ACCESS_KEY")),
		Region:          strings.TrimSpace(os.Getenv("ARENA_MIRROR_REGION")),
	}
	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("ARENA_MIRROR=true but ARENA_MIRROR_ENDPOINT/ARENA_MIRROR_BUCKET/ARENA_MIRROR_ACCESS_KEY_ID/ARENA_MIRROR_SECRET_ACCESS_KEY are not fully set")
	}
	client, err := s3mirror.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	opts := s3mirror.Options{Workers: envInt("ARENA_MIRROR_UPLOAD_WORKERS", 2)}
	return s3mirror.NewMirror(client, dataDir, os.Getenv("ARENA_MIRROR_PREFIX"), opts, logger), nil
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
