// Package environment reads process configuration from the environment,
// with an optional .env file for local development.
package environment

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type EnvConfig struct {
	// AssetsBase is where the WASM runtime bundles live: a local directory
	// or an HTTP(S) base URL.
	AssetsBase string
	// AssetsCacheDir caches bundles fetched from a remote AssetsBase.
	AssetsCacheDir string

	// WorkerPath overrides worker binary discovery for the dispatcher.
	WorkerPath string

	// ListenAddr is the grading server bind address.
	ListenAddr string
	// ServiceSecret guards the grading endpoint; empty disables auth.
	ServiceSecret string

	// SubmQueueURL and ResponseQueueURL enable the SQS intake loop when
	// both are set.
	SubmQueueURL     string
	ResponseQueueURL string

	// NatsURL enables run lifecycle event publishing when set.
	NatsURL string

	Debug bool
}

func ReadEnvConfig() *EnvConfig {
	// Missing .env is fine; real deployments configure through the
	// environment directly.
	_ = godotenv.Load()

	debug, _ := strconv.ParseBool(os.Getenv("AUTOGRADER_DEBUG"))

	return &EnvConfig{
		AssetsBase:       getenvDefault("AUTOGRADER_ASSETS", "assets"),
		AssetsCacheDir:   os.Getenv("AUTOGRADER_ASSETS_CACHE"),
		WorkerPath:       os.Getenv("AUTOGRADER_WORKER"),
		ListenAddr:       getenvDefault("AUTOGRADER_LISTEN", ":8787"),
		ServiceSecret:    os.Getenv("AUTOGRADER_SECRET"),
		SubmQueueURL:     os.Getenv("SUBM_SQS_QUEUE_URL"),
		ResponseQueueURL: os.Getenv("RESPONSE_SQS_QUEUE_URL"),
		NatsURL:          os.Getenv("NATS_URL"),
		Debug:            debug,
	}
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
