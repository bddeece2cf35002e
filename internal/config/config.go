package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"splitroom/internal/logger"
	"splitroom/internal/ocr"
	"splitroom/internal/refine"
)

type Config struct {
	// Google Cloud Configuration
	GoogleCloudProject         string
	GoogleCloudLocation        string
	DocumentAIProcessorID      string
	DocumentAIProcessorVersion string
	GoogleCredentialsJSON      string
	GoogleCredentialsFile      string
	CloudOCRBackend            string
	CloudConcurrency           int
	CloudTimeout               time.Duration

	// AI refiner Configuration (any OpenAI-compatible endpoint)
	AIAPIKey  string
	AIBaseURL string
	AIModel   string
	AITimeout time.Duration

	// Local OCR tooling
	OCRLang      string
	PDFToTextBin string
	PDFToPPMBin  string
	PDFInfoBin   string
	MagickBin    string
	TesseractBin string

	// Classifier dictionaries; empty uses the embedded defaults
	DictionariesFile string

	// HTTP server
	HTTPAddr       string
	MaxUploadMB    int
	RequestTimeout time.Duration

	// Batch processing
	BatchWorkers int

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// LogFullText logs the whole acquired bill text (debug only)
	LogFullText bool

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	var errs []error
	intEnv := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	config := &Config{
		GoogleCloudProject:         getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:        getEnv("GOOGLE_CLOUD_LOCATION", "eu"),
		DocumentAIProcessorID:      getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		DocumentAIProcessorVersion: getEnv("DOCUMENT_AI_PROCESSOR_VERSION", ""),
		GoogleCredentialsJSON:      getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleCredentialsFile:      getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		CloudOCRBackend:            getEnv("CLOUD_OCR_BACKEND", ocr.BackendDocumentAI),
		CloudConcurrency:           intEnv("CLOUD_CONCURRENCY", ocr.DefaultCloudConcurrency),
		CloudTimeout:               time.Duration(intEnv("CLOUD_TIMEOUT_SECONDS", 60)) * time.Second,
		AIAPIKey:                   getEnv("AI_API_KEY", getEnv("DEEPSEEK_API_KEY", "")),
		AIBaseURL:                  getEnv("AI_BASE_URL", refine.DefaultBaseURL),
		AIModel:                    getEnv("AI_MODEL", refine.DefaultModel),
		AITimeout:                  time.Duration(intEnv("AI_TIMEOUT_SECONDS", 30)) * time.Second,
		OCRLang:                    getEnv("OCR_LANG", "por+eng"),
		PDFToTextBin:               getEnv("PDFTOTEXT_BIN", "pdftotext"),
		PDFToPPMBin:                getEnv("PDFTOPPM_BIN", "pdftoppm"),
		PDFInfoBin:                 getEnv("PDFINFO_BIN", "pdfinfo"),
		MagickBin:                  getEnv("MAGICK_BIN", "magick"),
		TesseractBin:               getEnv("TESSERACT_BIN", "tesseract"),
		DictionariesFile:           getEnv("DICTIONARIES_FILE", ""),
		HTTPAddr:                   getEnv("HTTP_ADDR", ":3001"),
		MaxUploadMB:                intEnv("MAX_UPLOAD_MB", 25),
		RequestTimeout:             time.Duration(intEnv("REQUEST_TIMEOUT_SECONDS", 120)) * time.Second,
		BatchWorkers:               intEnv("BATCH_WORKERS", 12),
		GoogleSheetURL:             getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:       getEnv("GOOGLE_SHEET_WORKSHEET", "Bills"),
		LogFullText:                getEnv("LOG_FULL_TEXT", "") == "1",
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		LogFormat:                  getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:              getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                  getEnv("LOG_OUTPUT", "stderr"),
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation failed: %w", errs[0])
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validate rejects values that are malformed. Missing cloud or AI
// credentials are not errors; they only switch the matching stage off.
func (c *Config) validate() error {
	switch c.CloudOCRBackend {
	case ocr.BackendDocumentAI, ocr.BackendVision:
	default:
		return fmt.Errorf("CLOUD_OCR_BACKEND must be %q or %q, got %q", ocr.BackendDocumentAI, ocr.BackendVision, c.CloudOCRBackend)
	}
	if c.CloudOCRBackend == ocr.BackendDocumentAI && c.HasCloudCredentials() {
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required when Google credentials are set")
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required when Google credentials are set")
		}
	}
	if c.CloudConcurrency < 1 {
		return fmt.Errorf("CLOUD_CONCURRENCY must be at least 1")
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be at least 1")
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("MAX_UPLOAD_MB must be at least 1")
	}
	if c.RequestTimeout <= 0 || c.AITimeout <= 0 || c.CloudTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// HasCloudCredentials reports whether the cloud OCR stage can be enabled.
func (c *Config) HasCloudCredentials() bool {
	return c.GoogleCredentialsJSON != "" || c.GoogleCredentialsFile != ""
}

// HasAI reports whether the fixed-cost refiner can be enabled.
func (c *Config) HasAI() bool {
	return c.AIAPIKey != ""
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// GetCloudConfig returns the Google analyzer configuration.
func (c *Config) GetCloudConfig() ocr.CloudConfig {
	return ocr.CloudConfig{
		Backend:          c.CloudOCRBackend,
		ProjectID:        c.GoogleCloudProject,
		Location:         c.GoogleCloudLocation,
		ProcessorID:      c.DocumentAIProcessorID,
		ProcessorVersion: c.DocumentAIProcessorVersion,
		CredentialsJSON:  c.GoogleCredentialsJSON,
		CredentialsFile:  c.GoogleCredentialsFile,
		Timeout:          c.CloudTimeout,
	}
}

// GetToolsConfig returns the local tool binaries.
func (c *Config) GetToolsConfig() ocr.ToolsConfig {
	return ocr.ToolsConfig{
		PDFToText: c.PDFToTextBin,
		PDFToPPM:  c.PDFToPPMBin,
		PDFInfo:   c.PDFInfoBin,
		Magick:    c.MagickBin,
		Tesseract: c.TesseractBin,
		Lang:      c.OCRLang,
	}
}

// GetRefineConfig returns the refiner endpoint configuration.
func (c *Config) GetRefineConfig() refine.Config {
	return refine.Config{
		APIKey:     c.AIAPIKey,
		BaseURL:    c.AIBaseURL,
		Model:      c.AIModel,
		Timeout:    c.AITimeout,
		MaxRetries: refine.DefaultMaxRetries,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}
