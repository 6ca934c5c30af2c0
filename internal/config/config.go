package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/subgen/backend/internal/translate"
)

// defaultEndpoints are public LibreTranslate instances tried when no
// endpoints are configured.
var defaultEndpoints = []translate.Endpoint{
	{BaseURL: "https://translate.argosopentech.com"},
	{BaseURL: "https://libretranslate.de"},
	{BaseURL: "https://translate.terraprint.co"},
	{BaseURL: "https://lt.vern.cc"},
}

type Config struct {
	Port          int
	DataPath      string
	DBPath        string
	JWTSecret     string
	AdminUsername string
	AdminPassword string
	CORSOrigins   []string

	FFmpegPath  string
	FFprobePath string

	// Whisper: server URL takes precedence over the CLI binary.
	WhisperURL   string
	WhisperCLI   string
	WhisperModel string

	TranslateEndpoints []translate.Endpoint
	Translate          translate.Config
	UnreachableAfter   int
}

// endpointsFile is the TOML shape of ENDPOINTS_FILE:
//
//	[[endpoints]]
//	base_url = "https://libretranslate.example.com"
//	api_key  = "..."
type endpointsFile struct {
	Endpoints []translate.Endpoint `toml:"endpoints"`
}

func Load() *Config {
	port, _ := strconv.Atoi(getEnv("PORT", "8080"))
	dataPath := getEnv("DATA_PATH", "/data")

	// JWT secret: require explicit setting or generate random
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			log.Fatalf("Failed to generate random JWT secret: %v", err)
		}
		jwtSecret = hex.EncodeToString(b)
		log.Println("WARNING: JWT_SECRET not set, using random secret. Sessions will not survive restarts. Set JWT_SECRET env var for persistent sessions.")
	}

	// CORS origins: comma-separated list or "*" (default)
	corsOrigins := []string{"*"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		corsOrigins = make([]string, 0, len(origins))
		for _, o := range origins {
			o = strings.TrimSpace(o)
			if o != "" {
				corsOrigins = append(corsOrigins, o)
			}
		}
	}

	endpoints, err := loadEndpoints()
	if err != nil {
		log.Fatalf("Failed to load translation endpoints: %v", err)
	}

	return &Config{
		Port:          port,
		DataPath:      dataPath,
		DBPath:        getEnv("DB_PATH", dataPath+"/subgen.db"),
		JWTSecret:     jwtSecret,
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin"),
		CORSOrigins:   corsOrigins,

		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),

		WhisperURL:   os.Getenv("WHISPER_URL"),
		WhisperCLI:   getEnv("WHISPER_CLI", "whisper-cli"),
		WhisperModel: os.Getenv("WHISPER_MODEL"),

		TranslateEndpoints: endpoints,
		Translate: translate.Config{
			MaxCharsPerBatch:       intEnv("TRANSLATE_BATCH_CHARS", 0),
			MaxSegmentsPerBatch:    intEnv("TRANSLATE_BATCH_SEGMENTS", 0),
			AttemptsPerEndpoint:    intEnv("TRANSLATE_ATTEMPTS", 0),
			MaxInFlightPerEndpoint: intEnv("TRANSLATE_IN_FLIGHT", 0),
			StageTimeout:           durationEnv("TRANSLATE_STAGE_TIMEOUT", 0),
		},
		UnreachableAfter: intEnv("TRANSLATE_UNREACHABLE_AFTER", 0),
	}
}

// loadEndpoints resolves translation endpoints in order of precedence:
// ENDPOINTS_FILE (TOML), then TRANSLATE_ENDPOINTS (comma-separated
// URLs), then the built-in public instances.
func loadEndpoints() ([]translate.Endpoint, error) {
	if path := os.Getenv("ENDPOINTS_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var file endpointsFile
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if len(file.Endpoints) == 0 {
			return nil, fmt.Errorf("%s defines no endpoints", path)
		}
		return file.Endpoints, nil
	}

	if v := os.Getenv("TRANSLATE_ENDPOINTS"); v != "" {
		var endpoints []translate.Endpoint
		for _, raw := range strings.Split(v, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			endpoints = append(endpoints, translate.Endpoint{BaseURL: strings.TrimRight(raw, "/")})
		}
		if len(endpoints) == 0 {
			return nil, fmt.Errorf("TRANSLATE_ENDPOINTS is set but empty")
		}
		return endpoints, nil
	}

	return defaultEndpoints, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("[config] ignoring invalid %s=%q", key, v)
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("[config] ignoring invalid %s=%q", key, v)
	}
	return fallback
}
