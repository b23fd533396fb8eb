package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

type Config struct {
	Address string
	Port    string
	Workers int
	Reload  bool
	Debug   bool
	LogDir  string

	CardTable  string
	MediaTable string
	Region     string
	Endpoint   string // empty means the regional AWS endpoint
	Backend    string

	StoreTimeout     time.Duration
	StoreMaxAttempts int
	MaxPages         int
	MaxItems         int
	SizeCeiling      int
	SizeIndexes      int

	CORSOrigins []string

	NatsURL       string
	NatsToken     string
	EventsSubject string
}

func Load() Config {
	return Config{
		Address: os.Getenv("SERVER_ADDRESS"),
		Port:    getString("SERVER_PORT", "8000"),
		Workers: getInt("SERVER_WORKERS", 0),
		Reload:  getBool("SERVER_RELOAD", false),
		Debug:   getBool("DEBUG", false),
		LogDir:  os.Getenv("LOG_DIR"),

		CardTable:  getString("CARD_TABLE", "cards"),
		MediaTable: getString("MEDIA_TABLE", "medias"),
		Region:     getString("AWS_REGION", "us-west-2"),
		Endpoint:   os.Getenv("DYNAMODB_ENDPOINT"),
		Backend:    strings.ToLower(getString("STORE_BACKEND", BackendDynamoDB)),

		StoreTimeout:     getDuration("STORE_TIMEOUT", 10*time.Second),
		StoreMaxAttempts: getInt("STORE_MAX_ATTEMPTS", 3),
		MaxPages:         getInt("PAGINATION_MAX_PAGES", 1000),
		MaxItems:         getInt("PAGINATION_MAX_ITEMS", 100000),
		SizeCeiling:      getInt("ITEM_SIZE_CEILING", 400000),
		SizeIndexes:      getInt("ITEM_SIZE_INDEXES", 0),

		CORSOrigins: splitList(getString("CORS_ORIGIN", "*")),

		NatsURL:       os.Getenv("NATS_URL"),
		NatsToken:     os.Getenv("NATS_TOKEN"),
		EventsSubject: getString("EVENTS_SUBJECT", "records.events"),
	}
}

// Addr is the listen address for http.Server.
func (c Config) Addr() string {
	return c.Address + ":" + c.Port
}

func getString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warnf("invalid %s value %q, using %d", key, v, def)
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warnf("invalid %s value %q, using %t", key, v, def)
		return def
	}
	return b
}

// getDuration accepts Go durations ("5s") or a bare number of seconds.
func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	log.Warnf("invalid %s value %q, using %s", key, v, def)
	return def
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
