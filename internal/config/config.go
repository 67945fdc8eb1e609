package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	JWTSecret     string           `json:"jwt_secret"`
	JWTTTLHours   int              `json:"jwt_ttl_hours"`
	CORSAllowlist []string         `json:"cors_allowlist"`
	LogConfig     logger.LogConfig `json:"log_config"`
	Database      DatabaseConfig   `json:"database"`
	Lock          LockConfig       `json:"lock"`
	Workflow      WorkflowConfig   `json:"workflow"`
	Audit         AuditConfig      `json:"audit"`
	FileStore     FileStoreConfig  `json:"file_store"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type LockConfig struct {
	// DefaultTTLMinutes is the lease length granted when a client omits one.
	DefaultTTLMinutes int `json:"default_ttl_minutes"`
	// MaxTTLMinutes caps client-requested TTLs and heartbeat extensions.
	MaxTTLMinutes int `json:"max_ttl_minutes"`
	// SweepSpec is the cron spec for deleting expired lock rows. The sweep
	// is storage hygiene only; correctness never depends on it.
	SweepSpec string `json:"sweep_spec"`
}

type WorkflowConfig struct {
	// ApprovalStages is 1 (review approval publishes directly to APPROVED)
	// or 2 (UNDER_REVIEW -> PENDING_APPROVAL -> APPROVED).
	ApprovalStages int `json:"approval_stages"`
}

type AuditConfig struct {
	RetentionDays int    `json:"retention_days"`
	RetentionSpec string `json:"retention_spec"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Lock.DefaultTTLMinutes == 0 {
		cfg.Lock.DefaultTTLMinutes = 30
	}
	if cfg.Lock.MaxTTLMinutes == 0 {
		cfg.Lock.MaxTTLMinutes = 120
	}
	if cfg.Lock.SweepSpec == "" {
		cfg.Lock.SweepSpec = "*/10 * * * *"
	}
	if cfg.Workflow.ApprovalStages == 0 {
		cfg.Workflow.ApprovalStages = 2
	}
	if cfg.Workflow.ApprovalStages != 1 && cfg.Workflow.ApprovalStages != 2 {
		return nil, fmt.Errorf("workflow.approval_stages must be 1 or 2")
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = 3650
	}
	if cfg.Audit.RetentionSpec == "" {
		cfg.Audit.RetentionSpec = "30 3 * * *"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
		cfg.FileStore.Data = map[string]interface{}{"dir": "./attachments"}
	}
	return &cfg, nil
}
