package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"log"
	"os"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/walletauth/adapters/events"
	"github.com/layer-3/walletauth/adapters/store"
	"github.com/layer-3/walletauth/adapters/tokenizer"
	"github.com/layer-3/walletauth/ports"
	"github.com/layer-3/walletauth/service"
	"github.com/layer-3/walletauth/transport/http"
)

func main() {
	// Generate a new ECDSA key pair (you would normally load this from somewhere secure)
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		panic(err)
	}

	cfg := loadConfig()
	logger := watermill.NewStdLogger(false, false)

	var provider ports.IdentityProvider
	var eventPub ports.EventPublisher

	switch {
	case os.Getenv("DATABASE_URL") != "":
		db, err := store.OpenPostgres(os.Getenv("DATABASE_URL"))
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		provider = store.NewPostgresStore(db, store.Columns{
			Address: cfg.AddressAttribute,
			Nonce:   cfg.NonceAttribute,
		}, store.PlaceholderDefaults)

	case os.Getenv("REDIS_URL") != "":
		opts, err := redis.ParseURL(os.Getenv("REDIS_URL"))
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opts)
		provider = store.NewRedisStore(redisClient, store.PlaceholderDefaults)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			logger,
		)
		if err != nil {
			log.Fatalf("Failed to create Redis publisher: %v", err)
		}
		eventPub = events.NewWatermillPublisher(publisher)

	default:
		provider = store.NewMemoryStore(store.PlaceholderDefaults)
	}

	authService := service.NewAuthService(provider, eventPub, cfg, logger)
	jwtTokenizer := tokenizer.NewJWTTokenizer(signKey)
	limiter := http.NewRateLimiter(5, 10)

	router := http.SetupRouter(authService, jwtTokenizer, cfg, limiter)

	addr := getEnv("LISTEN_ADDR", ":9000")
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func loadConfig() service.Config {
	cfg := service.DefaultConfig()

	if networks := os.Getenv("ALLOWED_NETWORKS"); networks != "" {
		for _, network := range strings.Split(networks, ",") {
			if network = strings.TrimSpace(network); network != "" {
				cfg.AllowedNetworks = append(cfg.AllowedNetworks, network)
			}
		}
	}

	cfg.AddressParam = getEnv("ADDRESS_PARAM", cfg.AddressParam)
	cfg.MessageParam = getEnv("MESSAGE_PARAM", cfg.MessageParam)
	cfg.SignatureParam = getEnv("SIGNATURE_PARAM", cfg.SignatureParam)
	cfg.AddressAttribute = getEnv("ADDRESS_ATTRIBUTE", cfg.AddressAttribute)
	cfg.NonceAttribute = getEnv("NONCE_ATTRIBUTE", cfg.NonceAttribute)

	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
