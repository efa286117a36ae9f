package config

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// InputFileName is read from the working directory when no --search flag is given.
const InputFileName = "input.txt"

// DefaultTotal is the per-search listing cap when none is supplied.
const DefaultTotal = 1000

// ErrNoSearchTerms means neither --search nor input.txt provided anything to search for.
var ErrNoSearchTerms = errors.New("You must either pass the -s search argument or add searches to input.txt")

// DefaultRegions are searched when --regions is not given.
func DefaultRegions() []string {
	return []string{"USA", "Australia", "UK", "New Zealand"}
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	PostgresRetries  int

	Headless          bool
	ChromeBin         string
	StartURL          string
	NavigationTimeout time.Duration
	SettleMin         time.Duration
	SettlePoll        time.Duration
	MaxScrolls        int

	OutputDir string
	LogLevel  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "gmaps_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresRetries:  getEnvInt("POSTGRES_RETRIES", 5),

		Headless:          getEnvBool("HEADLESS", false),
		ChromeBin:         getEnv("CHROME_BIN", ""),
		StartURL:          getEnv("START_URL", "https://www.google.com/maps"),
		NavigationTimeout: getEnvMillis("NAV_TIMEOUT_MS", 60000),
		SettleMin:         getEnvMillis("SETTLE_MIN_MS", 750),
		SettlePoll:        getEnvMillis("SETTLE_POLL_MS", 250),
		MaxScrolls:        getEnvInt("MAX_SCROLLS", 250),

		OutputDir: getEnv("OUTPUT_DIR", "output"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// LoadSearchTerms returns the search terms for the run. An explicit search
// wins; otherwise every non-blank line of input.txt in dir is used.
func LoadSearchTerms(search, dir string) ([]string, error) {
	if s := strings.TrimSpace(search); s != "" {
		return []string{s}, nil
	}

	f, err := os.Open(filepath.Join(dir, InputFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSearchTerms
		}
		return nil, fmt.Errorf("config: open %s: %w", InputFileName, err)
	}
	defer f.Close()

	var terms []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			terms = append(terms, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", InputFileName, err)
	}

	if len(terms) == 0 {
		return nil, ErrNoSearchTerms
	}
	return terms, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvMillis(key string, fallbackMs int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackMs)) * time.Millisecond
}
